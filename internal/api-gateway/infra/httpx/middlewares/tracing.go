package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata stores the request id and idempotency key in the
// context under typed keys and forwards them as outgoing gRPC metadata.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(constants.HeaderXIdempotencyKey)

		ctx := context.WithValue(r.Context(), constants.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, constants.ContextKeyIdempotencyKey, idempotencyKey)
		ctx = interceptors.SetOutgoing(ctx, constants.HeaderXRequestId, requestID)
		if idempotencyKey != "" {
			ctx = interceptors.SetOutgoing(ctx, constants.HeaderXIdempotencyKey, idempotencyKey)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
