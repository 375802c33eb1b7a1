package signin

import (
	"context"
	"errors"
	"time"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an authenticated portal session.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Challenge is a pending second factor the user must answer.
type Challenge struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginResult carries either a Session or a Challenge.
type LoginResult struct {
	Session   *Session
	Challenge *Challenge
}

// Authenticator is the portal's identity backend.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (LoginResult, error)
	VerifyTwoFactor(ctx context.Context, challengeID, code string) (Session, error)
	CancelTwoFactor(ctx context.Context, challengeID string) error
	SendLoginOTP(ctx context.Context, email string) error
	VerifyLoginOTP(ctx context.Context, email, code string) (Session, error)
}

// BackendError is a failure the identity backend explained to the user.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string { return e.Message }

// userMessage returns the backend's message for err, or fallback.
func userMessage(err error, fallback string) string {
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
