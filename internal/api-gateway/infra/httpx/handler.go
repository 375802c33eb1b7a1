package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/domain/entity"
	"github.com/jcmexdev/portal-flows/internal/api-gateway/core/ports"
	"github.com/jcmexdev/portal-flows/internal/confirmation"
	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	"github.com/jcmexdev/portal-flows/internal/signin"
)

// Deps wires the handler to the confirmation and sign-in domains.
type Deps struct {
	Catalog       *confirmation.Catalog
	Screens       ports.ScreenRegistry
	Payments      confirmation.PaymentInitiator
	Continuations *confirmation.ContinuationIssuer
	// FlowLog may be nil; confirmation transitions are then not persisted.
	FlowLog flowlog.Repository
	SignIn  *signin.Flow
	Cookies CookieOptions
}

// Handler serves the confirmation screens and the sign-in page.
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Catalog == nil {
		deps.Catalog = confirmation.DefaultCatalog
	}
	return &Handler{deps: deps}
}

// GetRequestType returns the resolved presentation of a request type.
// Unknown tags resolve to the default entry.
func (h *Handler) GetRequestType(w http.ResponseWriter, r *http.Request) {
	t := confirmation.ParseRequestType(chi.URLParam(r, "type"))
	cfg := h.deps.Catalog.Resolve(t)
	layout := confirmation.LayoutFor(cfg)
	writeJSON(w, http.StatusOK, RequestTypeResponse{
		Type:        t.String(),
		Config:      cfg,
		Layout:      layout,
		HeadingText: layout.HeadingText(),
	})
}

// MountScreen builds a confirmation screen from the navigation state the
// previous screen handed over.
func (h *Handler) MountScreen(w http.ResponseWriter, r *http.Request) {
	state := map[string]json.RawMessage{}
	if err := decodeBody(r, &state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req, err := confirmation.RequestFromState(state)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error())
		return
	}
	h.mount(w, r, req)
}

func (h *Handler) GetScreen(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mapScreenToResponse(screen))
}

func (h *Handler) UnmountScreen(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Screens.Unmount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeScreenError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm runs the confirmation for a mounted screen. The outcome is
// reported in the body; a failed confirmation is still a 200.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	var outcome confirmation.Outcome
	if err := decodeBody(r, &outcome); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	slog.InfoContext(r.Context(), "confirming request",
		"request_id", interceptors.RequestID(r.Context()),
		"screen_id", screen.ID,
		"type", screen.Controller.Request().Type,
	)

	// Detach from the request so a dropped connection does not abort a
	// payment initiation halfway, while keeping trace metadata.
	res := screen.Controller.Confirm(context.WithoutCancel(r.Context()), outcome)

	writeJSON(w, http.StatusOK, ConfirmResponse{
		Result:        res,
		Notifications: screen.Outbox.Drain(),
		Screen:        mapScreenToResponse(screen),
	})
}

func (h *Handler) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	screen, ok := h.screen(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: screen.Outbox.Drain()})
}

// ResumeContinuation mounts the confirmation screen a register-vehicle
// detour was started from, now with the registered vehicle.
func (h *Handler) ResumeContinuation(w http.ResponseWriter, r *http.Request) {
	var body ResumeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if h.deps.Continuations == nil {
		writeError(w, http.StatusServiceUnavailable, "continuations_disabled", "")
		return
	}

	req, err := h.deps.Continuations.Resume(r.Context(), body.Token, body.VehicleRef)
	switch {
	case err == nil:
	case errors.Is(err, confirmation.ErrVehicleRequired):
		writeError(w, http.StatusBadRequest, "vehicle_required", err.Error())
		return
	case errors.Is(err, confirmation.ErrContinuationRedeemed):
		writeError(w, http.StatusConflict, "continuation_used", err.Error())
		return
	case errors.Is(err, confirmation.ErrContinuationInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_continuation", err.Error())
		return
	default:
		slog.ErrorContext(r.Context(), "continuation resume failed", "error", err)
		writeError(w, http.StatusBadGateway, "continuation_error", err.Error())
		return
	}
	h.mount(w, r, req)
}

func (h *Handler) mount(w http.ResponseWriter, r *http.Request, req confirmation.OrderRequest) {
	id := uuid.NewString()
	outbox := confirmation.NewOutbox(0)
	screen := &entity.Screen{
		ID: id,
		Controller: confirmation.NewController(id, req, confirmation.Deps{
			Catalog:       h.deps.Catalog,
			Payments:      h.deps.Payments,
			Notifier:      outbox,
			Continuations: h.deps.Continuations,
			FlowLog:       h.deps.FlowLog,
		}),
		Outbox: outbox,
	}
	if err := h.deps.Screens.Mount(r.Context(), screen); err != nil {
		writeError(w, http.StatusInternalServerError, "mount_failed", err.Error())
		return
	}
	slog.InfoContext(r.Context(), "screen mounted", "screen_id", id, "type", req.Type)
	writeJSON(w, http.StatusCreated, mapScreenToResponse(screen))
}

func (h *Handler) screen(w http.ResponseWriter, r *http.Request) (*entity.Screen, bool) {
	screen, err := h.deps.Screens.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeScreenError(w, err)
		return nil, false
	}
	return screen, true
}

func writeScreenError(w http.ResponseWriter, err error) {
	if errors.Is(err, ports.ErrScreenNotFound) {
		writeError(w, http.StatusNotFound, "screen_not_found", "")
		return
	}
	writeError(w, http.StatusInternalServerError, "screen_registry_error", err.Error())
}

// decodeBody decodes a JSON body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
