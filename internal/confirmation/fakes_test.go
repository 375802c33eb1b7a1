package confirmation

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePayments struct {
	mu     sync.Mutex
	calls  []PaymentRequest
	result PaymentResult
	err    error
	panics bool
	// observe runs inside the call, while the confirmation is in flight.
	observe func()
}

func (f *fakePayments) InitiatePayment(_ context.Context, req PaymentRequest) (PaymentResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.observe != nil {
		f.observe()
	}
	if f.panics {
		panic("payment client exploded")
	}
	return f.result, f.err
}

func (f *fakePayments) Calls() []PaymentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PaymentRequest(nil), f.calls...)
}

type memFlowLog struct {
	mu      sync.Mutex
	entries []flowlog.Entry
}

func (m *memFlowLog) Save(_ context.Context, e *flowlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memFlowLog) Statuses() []flowlog.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]flowlog.Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Status
	}
	return out
}

type memRedeemer struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (r *memRedeemer) Redeem(_ context.Context, id string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	if r.seen[id] {
		return false, nil
	}
	r.seen[id] = true
	return true, nil
}

type harness struct {
	payments *fakePayments
	outbox   *Outbox
	log      *memFlowLog
	issuer   *ContinuationIssuer
}

func newHarness() *harness {
	return &harness{
		payments: &fakePayments{},
		outbox:   NewOutbox(0),
		log:      &memFlowLog{},
		issuer:   NewContinuationIssuer("test-secret", time.Hour, &memRedeemer{}),
	}
}

func (h *harness) controller(req OrderRequest, catalog *Catalog) *Controller {
	return NewController("flow-test", req, Deps{
		Catalog:       catalog,
		Payments:      h.payments,
		Notifier:      h.outbox,
		Continuations: h.issuer,
		FlowLog:       h.log,
	})
}
