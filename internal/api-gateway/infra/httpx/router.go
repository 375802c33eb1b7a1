package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/portal-flows/internal/api-gateway/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/request-types/{type}", handler.GetRequestType)

	r.Route("/screens", func(r chi.Router) {
		r.Post("/", handler.MountScreen)
		r.Get("/{id}", handler.GetScreen)
		r.Delete("/{id}", handler.UnmountScreen)
		r.Post("/{id}/confirm", handler.Confirm)
		r.Get("/{id}/notifications", handler.DrainNotifications)
	})
	r.Post("/continuations/resume", handler.ResumeContinuation)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", handler.Login)
		r.Get("/remembered-email", handler.RememberedEmail)
		r.Post("/2fa/verify", handler.VerifyTwoFactor)
		r.Post("/2fa/cancel", handler.CancelTwoFactor)
		r.Post("/otp/send", handler.SendOTP)
		r.Post("/otp/verify", handler.VerifyOTP)
	})
	return r
}
