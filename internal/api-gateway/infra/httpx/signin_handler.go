package httpx

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
	"github.com/jcmexdev/portal-flows/internal/signin"
)

const RememberedEmailCookie = "rememberedEmail"

type CookieOptions struct {
	RememberTTL time.Duration
	Secure      bool
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form signin.Form
	if err := decodeBody(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	out := h.deps.SignIn.Login(r.Context(), form)
	switch out.Remember {
	case signin.RememberStore:
		h.setRememberedEmail(w, form.Email)
	case signin.RememberClear:
		h.clearRememberedEmail(w)
	}
	writeSignIn(w, out)
}

func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body TwoFactorRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeSignIn(w, h.deps.SignIn.VerifyTwoFactor(r.Context(), body.ChallengeID, body.Code))
}

func (h *Handler) CancelTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body TwoFactorRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeSignIn(w, h.deps.SignIn.CancelTwoFactor(r.Context(), body.ChallengeID))
}

func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var body OTPRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeSignIn(w, h.deps.SignIn.SendOTP(r.Context(), body.Email))
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body OTPRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeSignIn(w, h.deps.SignIn.VerifyOTP(r.Context(), body.Email, body.Code))
}

// RememberedEmail returns the email stored by a remember-me login, if any.
func (h *Handler) RememberedEmail(w http.ResponseWriter, r *http.Request) {
	var email string
	if c, err := r.Cookie(RememberedEmailCookie); err == nil {
		email, _ = url.QueryUnescape(c.Value)
	}
	writeJSON(w, http.StatusOK, RememberedEmailResponse{Email: email})
}

func (h *Handler) setRememberedEmail(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberedEmailCookie,
		Value:    url.QueryEscape(email),
		Path:     "/",
		MaxAge:   int(h.deps.Cookies.RememberTTL / time.Second),
		HttpOnly: true,
		Secure:   h.deps.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRememberedEmail(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberedEmailCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.deps.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeSignIn(w http.ResponseWriter, out signin.Outcome) {
	status := http.StatusOK
	switch {
	case len(out.FieldErrors) > 0:
		status = http.StatusUnprocessableEntity
	case out.Notification == nil || out.Notification.Level != confirmation.LevelError:
	case out.Notification.Message == signin.MsgOTPThrottled:
		status = http.StatusTooManyRequests
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, out)
}
