package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors/constants"
	"github.com/jcmexdev/portal-flows/internal/signin"
)

var _ signin.Authenticator = (*HTTPAuthenticator)(nil)

// HTTPAuthenticator calls the portal identity API.
type HTTPAuthenticator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthenticator(baseURL string, timeout time.Duration) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	Token             string    `json:"token"`
	Email             string    `json:"email"`
	ExpiresAt         time.Time `json:"expiresAt"`
	TwoFactorRequired bool      `json:"twoFactorRequired"`
	ChallengeID       string    `json:"challengeId"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (a *HTTPAuthenticator) Login(ctx context.Context, creds signin.Credentials) (signin.LoginResult, error) {
	var res sessionResponse
	if err := a.post(ctx, "/auth/login", creds, &res); err != nil {
		return signin.LoginResult{}, err
	}
	if res.TwoFactorRequired {
		return signin.LoginResult{Challenge: &signin.Challenge{ID: res.ChallengeID, Email: creds.Email}}, nil
	}
	s := res.session()
	return signin.LoginResult{Session: &s}, nil
}

func (a *HTTPAuthenticator) VerifyTwoFactor(ctx context.Context, challengeID, code string) (signin.Session, error) {
	var res sessionResponse
	body := map[string]string{"challengeId": challengeID, "code": code}
	if err := a.post(ctx, "/auth/2fa/verify", body, &res); err != nil {
		return signin.Session{}, err
	}
	return res.session(), nil
}

func (a *HTTPAuthenticator) CancelTwoFactor(ctx context.Context, challengeID string) error {
	return a.post(ctx, "/auth/2fa/cancel", map[string]string{"challengeId": challengeID}, nil)
}

func (a *HTTPAuthenticator) SendLoginOTP(ctx context.Context, email string) error {
	return a.post(ctx, "/auth/otp/send", map[string]string{"email": email}, nil)
}

func (a *HTTPAuthenticator) VerifyLoginOTP(ctx context.Context, email, code string) (signin.Session, error) {
	var res sessionResponse
	if err := a.post(ctx, "/auth/otp/verify", map[string]string{"email": email, "otp": code}, &res); err != nil {
		return signin.Session{}, err
	}
	return res.session(), nil
}

func (r sessionResponse) session() signin.Session {
	return signin.Session{Token: r.Token, Email: r.Email, ExpiresAt: r.ExpiresAt}
}

// post sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses become *signin.BackendError carrying the server's message.
func (a *HTTPAuthenticator) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("auth %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("auth %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := interceptors.RequestID(ctx); id != "" {
		req.Header.Set(constants.HeaderXRequestId, id)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return &signin.BackendError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("auth %s: decode: %w", path, err)
	}
	return nil
}
