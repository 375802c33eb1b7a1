package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
)

var _ confirmation.PaymentInitiator = (*fakeInitiator)(nil)

// fakeInitiator accepts every slug without a payment service. It is meant for
// local development only.
type fakeInitiator struct {
	checkoutBase string
}

func NewFakeInitiator(checkoutBase string) confirmation.PaymentInitiator {
	return &fakeInitiator{checkoutBase: strings.TrimRight(checkoutBase, "/")}
}

func (f *fakeInitiator) InitiatePayment(_ context.Context, req confirmation.PaymentRequest) (confirmation.PaymentResult, error) {
	ref := "FAKE-" + strings.ToUpper(uuid.NewString()[:8])
	return confirmation.PaymentAccepted{
		Reference:   ref,
		CheckoutURL: f.checkoutBase + "/" + ref,
		Data:        map[string]any{"slug": req.Slug},
	}, nil
}
