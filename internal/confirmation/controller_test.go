package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
)

var (
	itemRoadWorthiness = OrderItem{ID: "rw", Name: "Road worthiness", Amount: 500}
	itemInsurance      = OrderItem{ID: "ins", Name: "Third party insurance", Amount: 250, Quantity: 2}
)

func vehiclePaperRequest(withVehicle bool, details KeyValueMap) OrderRequest {
	req := OrderRequest{
		Items:   []OrderItem{itemRoadWorthiness},
		Type:    VehiclePaper,
		Amount:  500,
		Details: details,
		Extra:   KeyValueMap{"state": "Lagos", "renewalYears": 1.0},
	}
	if withVehicle {
		req.VehicleRef = &VehicleRef{ID: "car-7", PlateNumber: "LND-442-XY"}
	}
	return req
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestConfirm_VehiclePaperWithVehicle_NavigatesToRenew(t *testing.T) {
	h := newHarness()
	c := h.controller(vehiclePaperRequest(true, KeyValueMap{"plate": "LND-442-XY"}), nil)

	res := c.Confirm(context.Background(), Outcome{
		Total: 1000,
		Items: []OrderItem{itemRoadWorthiness, itemInsurance},
	})

	require.Equal(t, ResultNavigated, res.Kind)
	assert.Equal(t, RouteRenewLicense, res.Intent.Route)
	assert.Nil(t, res.Notification)
	assert.Empty(t, h.payments.Calls())

	state, ok := res.Intent.Payload.(RequestState)
	require.True(t, ok)
	assert.Equal(t, "car-7", state.VehicleRef.ID)
	assert.Equal(t, 1000.0, state.Amount)
	assert.Equal(t, DefaultPaperType, state.Details["paperType"])
	assert.Equal(t, "LND-442-XY", state.Details["plate"])
	assert.Len(t, state.Items, 2)

	assert.JSONEq(t, `{
		"vehicleRef": {"id": "car-7", "plateNumber": "LND-442-XY"},
		"type": "vehicle_paper",
		"amount": 1000,
		"details": {"paperType": "Private", "plate": "LND-442-XY"},
		"items": [
			{"id": "rw", "name": "Road worthiness", "amount": 500},
			{"id": "ins", "name": "Third party insurance", "amount": 250, "quantity": 2}
		],
		"state": "Lagos",
		"renewalYears": 1
	}`, mustJSON(t, res.Intent.Payload))

	assert.Equal(t, []flowlog.Status{flowlog.StatusStarted, flowlog.StatusNavigated}, h.log.Statuses())
}

func TestConfirm_VehiclePaper_PaperTypeDefaulting(t *testing.T) {
	tests := []struct {
		name    string
		details KeyValueMap
		want    any
	}{
		{"absent", KeyValueMap{}, DefaultPaperType},
		{"nil details", nil, DefaultPaperType},
		{"empty string", KeyValueMap{"paperType": ""}, DefaultPaperType},
		{"null", KeyValueMap{"paperType": nil}, DefaultPaperType},
		{"present", KeyValueMap{"paperType": "Commercial"}, "Commercial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			req := vehiclePaperRequest(true, tt.details)
			c := h.controller(req, nil)
			before := len(tt.details)

			res := c.Confirm(context.Background(), Outcome{Total: 500, Items: req.Items})

			require.Equal(t, ResultNavigated, res.Kind)
			state := res.Intent.Payload.(RequestState)
			assert.Equal(t, tt.want, state.Details["paperType"])
			// The incoming details are not mutated.
			assert.Len(t, tt.details, before)
		})
	}
}

func TestConfirm_VehiclePaperWithoutVehicle_RegistersFirst(t *testing.T) {
	h := newHarness()
	c := h.controller(vehiclePaperRequest(false, KeyValueMap{}), nil)

	res := c.Confirm(context.Background(), Outcome{Total: 500, Items: []OrderItem{itemRoadWorthiness}})

	require.Equal(t, ResultNavigated, res.Kind)
	assert.Equal(t, RouteRegisterCar, res.Intent.Route)

	payload, ok := res.Intent.Payload.(RegisterVehiclePayload)
	require.True(t, ok)
	assert.Equal(t, RouteConfirmRequest, payload.Next.Path)
	assert.NotEmpty(t, payload.Next.Token)
	assert.Nil(t, payload.Next.State.VehicleRef)
	assert.Equal(t, DefaultPaperType, payload.Next.State.Details["paperType"])
	assert.Equal(t, 500.0, payload.Next.State.Amount)
}

// Following the continuation back and confirming again must produce exactly
// the payload a user who already had a vehicle would have sent.
func TestConfirm_ContinuationReproducesRenewPayload(t *testing.T) {
	ctx := context.Background()
	vehicle := &VehicleRef{ID: "car-7", PlateNumber: "LND-442-XY"}
	outcome := Outcome{Total: 1000, Items: []OrderItem{itemRoadWorthiness, itemInsurance}}

	direct := newHarness()
	directReq := vehiclePaperRequest(false, KeyValueMap{"plate": "LND-442-XY"})
	directReq.VehicleRef = vehicle
	want := direct.controller(directReq, nil).Confirm(ctx, outcome)
	require.Equal(t, RouteRenewLicense, want.Intent.Route)

	h := newHarness()
	first := h.controller(vehiclePaperRequest(false, KeyValueMap{"plate": "LND-442-XY"}), nil).Confirm(ctx, outcome)
	require.Equal(t, RouteRegisterCar, first.Intent.Route)
	token := first.Intent.Payload.(RegisterVehiclePayload).Next.Token

	resumed, err := h.issuer.Resume(ctx, token, vehicle)
	require.NoError(t, err)

	got := h.controller(resumed, nil).Confirm(ctx, outcome)
	require.Equal(t, RouteRenewLicense, got.Intent.Route)

	assert.Equal(t, mustJSON(t, want.Intent.Payload), mustJSON(t, got.Intent.Payload))
	if diff := cmp.Diff(want.Intent.Payload, got.Intent.Payload); diff != "" {
		t.Errorf("renew payload mismatch (-direct +resumed):\n%s", diff)
	}
}

func TestConfirm_DriversLicenseWithoutSlug_IsSilentNoop(t *testing.T) {
	h := newHarness()
	c := h.controller(OrderRequest{Type: DriversLicense}, nil)

	res := c.Confirm(context.Background(), Outcome{Total: 1200, OrderDetails: KeyValueMap{"class": "B"}})

	assert.Equal(t, ResultNoop, res.Kind)
	assert.Nil(t, res.Intent)
	assert.Nil(t, res.Notification)
	assert.Empty(t, h.payments.Calls())
	assert.Empty(t, h.outbox.Drain())
	assert.False(t, c.IsProcessing())
}

func TestConfirm_DriversLicenseAccepted_DoesNotNavigate(t *testing.T) {
	h := newHarness()
	h.payments.result = PaymentAccepted{Reference: "pay-1", CheckoutURL: "https://pay.example/checkout/pay-1"}
	c := h.controller(OrderRequest{Type: DriversLicense}, nil)

	res := c.Confirm(context.Background(), Outcome{Total: 1200, OrderDetails: KeyValueMap{"slug": "dl-renewal-42"}})

	assert.Equal(t, ResultPaymentInitiated, res.Kind)
	assert.Nil(t, res.Intent)
	assert.Nil(t, res.Notification)
	require.NotNil(t, res.Payment)
	assert.Equal(t, "pay-1", res.Payment.Reference)

	calls := h.payments.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "dl-renewal-42", calls[0].Slug)
	assert.Equal(t, 1200.0, calls[0].Amount)
	assert.Equal(t, "flow-test:dl-renewal-42", calls[0].IdempotencyKey)
	assert.Empty(t, h.outbox.Drain())
}

func TestConfirm_DriversLicenseRejected_NotifiesOnce(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"with message", "Application already paid", "Application already paid"},
		{"without message", "", MsgPaymentFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.payments.result = PaymentRejected{Message: tt.message}
			c := h.controller(OrderRequest{Type: DriversLicense}, nil)

			res := c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": "dl-1"}})

			assert.Equal(t, ResultPaymentRejected, res.Kind)
			assert.Nil(t, res.Intent)
			assert.Equal(t, []Notification{{Level: LevelError, Message: tt.want}}, h.outbox.Drain())
			assert.False(t, c.IsProcessing())
			assert.Equal(t, []flowlog.Status{flowlog.StatusStarted, flowlog.StatusPaymentRejected}, h.log.Statuses())
		})
	}
}

func TestConfirm_UnexpectedFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakePayments)
	}{
		{"returned error", func(f *fakePayments) { f.err = errors.New("connection refused") }},
		{"panic", func(f *fakePayments) { f.panics = true }},
		{"nil result", func(f *fakePayments) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h.payments)
			c := h.controller(OrderRequest{Type: DriversLicense}, nil)

			var res Result
			require.NotPanics(t, func() {
				res = c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": "dl-1"}})
			})

			assert.Equal(t, ResultFailed, res.Kind)
			assert.Nil(t, res.Intent)
			assert.Equal(t, []Notification{{Level: LevelError, Message: MsgUnexpected}}, h.outbox.Drain())
			assert.False(t, c.IsProcessing())
			assert.Equal(t, []flowlog.Status{flowlog.StatusStarted, flowlog.StatusFailed}, h.log.Statuses())
		})
	}
}

func TestConfirm_DefaultType(t *testing.T) {
	t.Run("no next route is a no-op", func(t *testing.T) {
		h := newHarness()
		c := h.controller(OrderRequest{Type: Default}, nil)

		res := c.Confirm(context.Background(), Outcome{Total: 500, Items: []OrderItem{itemRoadWorthiness}, OrderDetails: KeyValueMap{"a": 1.0}})

		assert.Equal(t, ResultNoop, res.Kind)
		assert.Nil(t, res.Intent)
		assert.Empty(t, h.outbox.Drain())
	})

	t.Run("configured next route navigates", func(t *testing.T) {
		h := newHarness()
		catalog := NewCatalog(map[RequestType]Config{Default: {NextRoute: "/x"}})
		c := h.controller(OrderRequest{Type: Default}, catalog)

		res := c.Confirm(context.Background(), Outcome{Total: 500, Items: []OrderItem{itemRoadWorthiness}, OrderDetails: KeyValueMap{"a": 1}})

		require.Equal(t, ResultNavigated, res.Kind)
		assert.Equal(t, "/x", res.Intent.Route)
		assert.JSONEq(t, `{
			"a": 1,
			"type": "default",
			"amount": 500,
			"items": [{"id": "rw", "name": "Road worthiness", "amount": 500}]
		}`, mustJSON(t, res.Intent.Payload))
	})

	t.Run("fixed keys win over order details", func(t *testing.T) {
		h := newHarness()
		catalog := NewCatalog(map[RequestType]Config{Default: {NextRoute: "/x"}})
		c := h.controller(OrderRequest{Type: Default}, catalog)

		res := c.Confirm(context.Background(), Outcome{Total: 10, OrderDetails: KeyValueMap{"amount": 99, "type": "spoofed"}})

		assert.JSONEq(t, `{"type":"default","amount":10,"items":[]}`, mustJSON(t, res.Intent.Payload))
	})
}

func TestConfirm_InFlightFlagSpansTheCall(t *testing.T) {
	h := newHarness()
	h.payments.result = PaymentAccepted{Reference: "pay-2"}
	c := h.controller(OrderRequest{Type: DriversLicense}, nil)

	var during bool
	var duringButton string
	h.payments.observe = func() {
		during = c.IsProcessing()
		duringButton = c.ButtonText()
	}

	assert.False(t, c.IsProcessing())
	assert.Equal(t, ButtonProceed, c.ButtonText())

	c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": "dl-2"}})

	assert.True(t, during)
	assert.Equal(t, ButtonProcessing, duringButton)
	assert.False(t, c.IsProcessing())
	assert.Equal(t, ButtonProceed, c.ButtonText())
}

func TestConfirm_ConcurrentCallsResetFlag(t *testing.T) {
	h := newHarness()
	h.payments.result = PaymentAccepted{Reference: "pay-3"}
	c := h.controller(OrderRequest{Type: DriversLicense}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": "dl-3"}})
		}()
	}
	wg.Wait()

	assert.False(t, c.IsProcessing())
	assert.Len(t, h.payments.Calls(), 8)
}

func TestConfirm_WithoutFlowLog(t *testing.T) {
	c := NewController("flow-nolog", OrderRequest{Type: Default}, Deps{})
	res := c.Confirm(context.Background(), Outcome{})
	assert.Equal(t, ResultNoop, res.Kind)
	assert.Equal(t, DefaultCatalog.Resolve(Default), c.Config())
}

type panickingFlowLog struct{}

func (panickingFlowLog) Save(context.Context, *flowlog.Entry) error { panic("disk gone") }

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, Notification) { panic("toast layer gone") }

func TestConfirm_PanickingCollaboratorsStayContained(t *testing.T) {
	t.Run("flow log", func(t *testing.T) {
		c := NewController("flow-test", OrderRequest{Type: Default}, Deps{FlowLog: panickingFlowLog{}})

		var res Result
		require.NotPanics(t, func() { res = c.Confirm(context.Background(), Outcome{}) })
		assert.Equal(t, ResultNoop, res.Kind)
		assert.False(t, c.IsProcessing())
	})

	t.Run("flow log and notifier while failing", func(t *testing.T) {
		payments := &fakePayments{panics: true}
		c := NewController("flow-test", OrderRequest{Type: DriversLicense}, Deps{
			Payments: payments,
			Notifier: panickingNotifier{},
			FlowLog:  panickingFlowLog{},
		})

		var res Result
		require.NotPanics(t, func() {
			res = c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": "dl-1"}})
		})
		assert.Equal(t, ResultFailed, res.Kind)
		require.NotNil(t, res.Notification)
		assert.Equal(t, MsgUnexpected, res.Notification.Message)
		assert.False(t, c.IsProcessing())
	})
}

func TestConfirm_DriversLicenseScalarSlugs(t *testing.T) {
	tests := []struct {
		name string
		slug any
		want string
	}{
		{"integer", 42.0, "42"},
		{"fraction", 1.5, "1.5"},
		{"large number", 1234567890.0, "1234567890"},
		{"true", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.payments.result = PaymentAccepted{Reference: "pay-1"}
			c := h.controller(OrderRequest{Type: DriversLicense}, nil)

			res := c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": tt.slug}})

			assert.Equal(t, ResultPaymentInitiated, res.Kind)
			calls := h.payments.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0].Slug)
		})
	}
}

func TestConfirm_DriversLicenseBlankOrCompositeSlug(t *testing.T) {
	for _, slug := range []any{nil, "", 0.0, false} {
		h := newHarness()
		c := h.controller(OrderRequest{Type: DriversLicense}, nil)
		res := c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": slug}})
		assert.Equal(t, ResultNoop, res.Kind, "slug %#v", slug)
		assert.Empty(t, h.payments.Calls())
	}

	h := newHarness()
	c := h.controller(OrderRequest{Type: DriversLicense}, nil)
	res := c.Confirm(context.Background(), Outcome{OrderDetails: KeyValueMap{"slug": map[string]any{"id": "dl-1"}}})
	assert.Equal(t, ResultFailed, res.Kind)
	assert.Empty(t, h.payments.Calls())
	assert.Equal(t, []Notification{{Level: LevelError, Message: MsgUnexpected}}, h.outbox.Drain())
}
