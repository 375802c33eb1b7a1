package confirmation

import "context"

// PaymentRequest asks the payment service to start paying for a license
// application identified by its slug.
type PaymentRequest struct {
	Slug           string
	Amount         float64
	IdempotencyKey string
}

// PaymentResult is either PaymentAccepted or PaymentRejected.
type PaymentResult interface {
	isPaymentResult()
}

// PaymentAccepted means the payment service took over the next transition.
type PaymentAccepted struct {
	Reference   string         `json:"reference"`
	CheckoutURL string         `json:"checkoutUrl,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// PaymentRejected is a failure the payment service reported with a
// user-facing message. Message may be empty.
type PaymentRejected struct {
	Message string `json:"message,omitempty"`
}

func (PaymentAccepted) isPaymentResult() {}
func (PaymentRejected) isPaymentResult() {}

// PaymentInitiator starts a payment. A non-nil error is an unexpected
// failure; reported failures come back as PaymentRejected.
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}
