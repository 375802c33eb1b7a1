package confirmation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
)

// User-facing messages.
const (
	MsgPaymentFailed = "Failed to initiate payment"
	MsgUnexpected    = "An error occurred while processing your request"

	ButtonProceed    = "Proceed to Payment"
	ButtonProcessing = "Processing..."
)

// ResultKind says which of the mutually exclusive outcomes a confirmation had.
type ResultKind string

const (
	ResultNavigated        ResultKind = "navigated"
	ResultPaymentInitiated ResultKind = "payment_initiated"
	ResultPaymentRejected  ResultKind = "payment_rejected"
	ResultNoop             ResultKind = "noop"
	ResultFailed           ResultKind = "failed"
)

// Result reports what one confirmation did.
type Result struct {
	Kind         ResultKind        `json:"kind"`
	Intent       *NavigationIntent `json:"intent,omitempty"`
	Payment      *PaymentAccepted  `json:"payment,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
}

// Deps are the collaborators a Controller calls out to.
type Deps struct {
	Catalog       *Catalog
	Payments      PaymentInitiator
	Notifier      Notifier
	Continuations *ContinuationIssuer
	// FlowLog may be nil; transitions are then not persisted.
	FlowLog flowlog.Repository
}

// Controller drives the confirmation screen for one incoming order request.
type Controller struct {
	flowID   string
	request  OrderRequest
	config   Config
	deps     Deps
	inFlight atomic.Int32
}

// NewController mounts a confirmation screen for req. flowID correlates the
// flow log entries of this screen.
func NewController(flowID string, req OrderRequest, deps Deps) *Controller {
	if deps.Catalog == nil {
		deps.Catalog = DefaultCatalog
	}
	return &Controller{
		flowID:  flowID,
		request: req,
		config:  deps.Catalog.Resolve(req.Type),
		deps:    deps,
	}
}

func (c *Controller) FlowID() string        { return c.flowID }
func (c *Controller) Request() OrderRequest { return c.request }
func (c *Controller) Config() Config        { return c.config }

// IsProcessing reports whether a confirmation is running.
func (c *Controller) IsProcessing() bool { return c.inFlight.Load() > 0 }

// ButtonText is the label of the confirm control.
func (c *Controller) ButtonText() string {
	if c.IsProcessing() {
		return ButtonProcessing
	}
	return ButtonProceed
}

// Confirm dispatches a confirmed order according to its request type. It
// never returns an error: failures are turned into a notification.
func (c *Controller) Confirm(ctx context.Context, outcome Outcome) (res Result) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	var span trace.Span
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("confirmation: panic: %v", r)
			if span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			res = c.fail(ctx, err)
		}
		if span != nil {
			span.End()
		}
	}()

	ctx, span = otel.Tracer("confirmation").Start(ctx, "Confirm")
	span.SetAttributes(
		attribute.String("flow.id", c.flowID),
		attribute.String("request.type", c.request.Type.String()),
	)

	c.record(ctx, flowlog.StatusStarted, "", outcome, nil)

	var err error
	res, err = c.dispatch(ctx, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.fail(ctx, err)
	}

	switch res.Kind {
	case ResultNavigated:
		c.record(ctx, flowlog.StatusNavigated, res.Intent.Route, res.Intent.Payload, nil)
	case ResultPaymentInitiated:
		c.record(ctx, flowlog.StatusPaymentInitiated, "", res.Payment, nil)
	case ResultPaymentRejected:
		c.record(ctx, flowlog.StatusPaymentRejected, "", nil, []string{res.Notification.Message})
	default:
		c.record(ctx, flowlog.StatusNoop, "", nil, nil)
	}
	return res
}

func (c *Controller) dispatch(ctx context.Context, outcome Outcome) (Result, error) {
	switch c.request.Type {
	case VehiclePaper:
		return c.dispatchVehiclePaper(outcome)
	case DriversLicense:
		return c.dispatchDriversLicense(ctx, outcome)
	default:
		if c.config.NextRoute == "" {
			return Result{Kind: ResultNoop}, nil
		}
		return navigate(c.config.NextRoute, NextStepPayload{
			OrderDetails: outcome.OrderDetails,
			Type:         c.request.Type,
			Amount:       outcome.Total,
			Items:        outcome.Items,
		}), nil
	}
}

func (c *Controller) dispatchVehiclePaper(outcome Outcome) (Result, error) {
	state := RequestState{
		Type:    c.request.Type,
		Amount:  outcome.Total,
		Details: withPaperType(c.request.Details),
		Items:   outcome.Items,
		Extra:   c.request.Extra,
	}

	if c.request.VehicleRef != nil {
		state.VehicleRef = c.request.VehicleRef
		return navigate(RouteRenewLicense, state), nil
	}

	if c.deps.Continuations == nil {
		return Result{}, fmt.Errorf("confirmation: no continuation issuer configured")
	}
	next, err := c.deps.Continuations.Issue(state)
	if err != nil {
		return Result{}, err
	}
	return navigate(RouteRegisterCar, RegisterVehiclePayload{Next: next}), nil
}

func (c *Controller) dispatchDriversLicense(ctx context.Context, outcome Outcome) (Result, error) {
	slug, ok, err := slugOf(outcome.OrderDetails)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Kind: ResultNoop}, nil
	}
	if c.deps.Payments == nil {
		return Result{}, fmt.Errorf("confirmation: no payment initiator configured")
	}

	pr, err := c.deps.Payments.InitiatePayment(ctx, PaymentRequest{
		Slug:           slug,
		Amount:         outcome.Total,
		IdempotencyKey: c.flowID + ":" + slug,
	})
	if err != nil {
		return Result{}, fmt.Errorf("confirmation: initiate payment for %q: %w", slug, err)
	}

	switch r := pr.(type) {
	case PaymentAccepted:
		slog.InfoContext(ctx, "payment initiated",
			"flow_id", c.flowID, "slug", slug, "reference", r.Reference)
		return Result{Kind: ResultPaymentInitiated, Payment: &r}, nil
	case PaymentRejected:
		msg := r.Message
		if msg == "" {
			msg = MsgPaymentFailed
		}
		n := c.notify(ctx, msg)
		return Result{Kind: ResultPaymentRejected, Notification: &n}, nil
	default:
		return Result{}, fmt.Errorf("confirmation: unknown payment result %T", pr)
	}
}

func (c *Controller) fail(ctx context.Context, err error) Result {
	slog.ErrorContext(ctx, "confirmation failed",
		"flow_id", c.flowID, "type", c.request.Type, "error", err)
	c.record(ctx, flowlog.StatusFailed, "", nil, []string{err.Error()})
	n := c.notify(ctx, MsgUnexpected)
	return Result{Kind: ResultFailed, Notification: &n}
}

func (c *Controller) notify(ctx context.Context, msg string) Notification {
	n := Notification{Level: LevelError, Message: msg}
	if c.deps.Notifier != nil {
		contain(ctx, "notifier", func() { c.deps.Notifier.Notify(ctx, n) })
	}
	return n
}

// record appends to the flow log. Failures, panics included, are logged and
// never change the outcome of a confirmation.
func (c *Controller) record(ctx context.Context, status flowlog.Status, route string, payload any, errs []string) {
	if c.deps.FlowLog == nil {
		return
	}
	contain(ctx, "flow log", func() { c.save(ctx, status, route, payload, errs) })
}

func (c *Controller) save(ctx context.Context, status flowlog.Status, route string, payload any, errs []string) {
	var body string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			body = string(b)
		}
	}
	entry := flowlog.NewEntry(ctx, c.flowID, status, c.request.Type.String(), route, body, errs)
	if err := c.deps.FlowLog.Save(ctx, entry); err != nil {
		slog.WarnContext(ctx, "flow log write failed", "flow_id", c.flowID, "status", status, "error", err)
	}
}

// contain runs fn and logs a panic instead of letting it escape. It guards
// calls made while a confirmation is already settling its outcome.
func contain(ctx context.Context, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "confirmation side effect panicked", "component", what, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// slugOf reads the application slug from the order details. Any non-blank
// scalar counts; numbers are formatted without exponent.
func slugOf(details KeyValueMap) (string, bool, error) {
	v := details["slug"]
	if blank(v) {
		return "", false, nil
	}
	switch t := v.(type) {
	case string:
		return t, true, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true, nil
	case int:
		return strconv.Itoa(t), true, nil
	case json.Number:
		return t.String(), true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	default:
		return "", false, fmt.Errorf("confirmation: slug has unsupported type %T", v)
	}
}

func navigate(route string, payload any) Result {
	return Result{
		Kind:   ResultNavigated,
		Intent: &NavigationIntent{Route: route, Payload: payload},
	}
}

// withPaperType copies details, defaulting paperType when it is missing or
// blank.
func withPaperType(details KeyValueMap) KeyValueMap {
	out := details.Clone()
	if blank(out["paperType"]) {
		out["paperType"] = DefaultPaperType
	}
	return out
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	}
	return false
}
