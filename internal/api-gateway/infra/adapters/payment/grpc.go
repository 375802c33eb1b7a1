package payment

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors/constants"
	paymentv1 "github.com/jcmexdev/portal-flows/internal/rpc/payment/v1"
)

// GRPCInitiator is the adapter that talks to the payment service over gRPC.
type GRPCInitiator struct {
	client  paymentv1.PaymentClient
	timeout time.Duration
}

var _ confirmation.PaymentInitiator = (*GRPCInitiator)(nil)

func NewGRPCInitiator(client paymentv1.PaymentClient, timeout time.Duration) *GRPCInitiator {
	return &GRPCInitiator{client: client, timeout: timeout}
}

// InitiatePayment maps the service's business refusals to PaymentRejected.
// Transport and server faults come back as errors.
func (p *GRPCInitiator) InitiatePayment(ctx context.Context, req confirmation.PaymentRequest) (confirmation.PaymentResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if req.IdempotencyKey != "" {
		ctx = interceptors.SetOutgoing(ctx, constants.HeaderXIdempotencyKey, req.IdempotencyKey)
	}
	if id := interceptors.RequestID(ctx); id != "" {
		ctx = interceptors.SetOutgoing(ctx, constants.HeaderXRequestId, id)
	}

	res, err := p.client.InitiateLicensePayment(ctx, &paymentv1.InitiateLicensePaymentRequest{
		Slug:   req.Slug,
		Amount: req.Amount,
	})
	if err != nil {
		st, ok := status.FromError(err)
		if ok {
			switch st.Code() {
			case codes.NotFound, codes.FailedPrecondition, codes.InvalidArgument:
				return confirmation.PaymentRejected{Message: st.Message()}, nil
			}
		}
		return nil, fmt.Errorf("grpc InitiateLicensePayment: %w", err)
	}

	data := make(map[string]any, len(res.Metadata)+1)
	for k, v := range res.Metadata {
		data[k] = v
	}
	data["status"] = res.Status
	return confirmation.PaymentAccepted{
		Reference:   res.Reference,
		CheckoutURL: res.CheckoutUrl,
		Data:        data,
	}, nil
}
