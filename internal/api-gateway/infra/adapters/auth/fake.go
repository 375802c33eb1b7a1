package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/portal-flows/internal/signin"
)

var _ signin.Authenticator = (*fakeAuthenticator)(nil)

// FakeUser is an account known to the fake authenticator.
type FakeUser struct {
	Password  string
	TwoFactor bool
}

// fakeAuthenticator is an in-memory identity backend for local development.
// Every one-time code it accepts is FakeCode.
type fakeAuthenticator struct {
	mu         sync.Mutex
	users      map[string]FakeUser
	challenges map[string]string // challenge id -> email
	otps       map[string]bool   // emails with a pending OTP
}

const FakeCode = "123456"

func NewFakeAuthenticator(users map[string]FakeUser) signin.Authenticator {
	byEmail := make(map[string]FakeUser, len(users))
	for email, u := range users {
		byEmail[strings.ToLower(email)] = u
	}
	return &fakeAuthenticator{
		users:      byEmail,
		challenges: make(map[string]string),
		otps:       make(map[string]bool),
	}
}

// DevUsers is the seed account list used when no identity backend is configured.
func DevUsers() map[string]FakeUser {
	return map[string]FakeUser{
		"driver@portal.local": {Password: "password"},
		"admin@portal.local":  {Password: "password", TwoFactor: true},
	}
}

var errInvalidCredentials = &signin.BackendError{Status: 401, Message: "Invalid email or password"}

func (f *fakeAuthenticator) Login(_ context.Context, creds signin.Credentials) (signin.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email := strings.ToLower(creds.Email)
	u, ok := f.users[email]
	if !ok || u.Password != creds.Password {
		return signin.LoginResult{}, errInvalidCredentials
	}
	if u.TwoFactor {
		id := uuid.NewString()
		f.challenges[id] = email
		return signin.LoginResult{Challenge: &signin.Challenge{ID: id, Email: email}}, nil
	}
	s := newSession(email)
	return signin.LoginResult{Session: &s}, nil
}

func (f *fakeAuthenticator) VerifyTwoFactor(_ context.Context, challengeID, code string) (signin.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email, ok := f.challenges[challengeID]
	if !ok {
		return signin.Session{}, &signin.BackendError{Status: 404, Message: "Verification session expired"}
	}
	if code != FakeCode {
		return signin.Session{}, &signin.BackendError{Status: 401, Message: "Invalid verification code"}
	}
	delete(f.challenges, challengeID)
	return newSession(email), nil
}

func (f *fakeAuthenticator) CancelTwoFactor(_ context.Context, challengeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.challenges, challengeID)
	return nil
}

func (f *fakeAuthenticator) SendLoginOTP(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = strings.ToLower(email)
	if _, ok := f.users[email]; !ok {
		return &signin.BackendError{Status: 404, Message: "No account found for this email"}
	}
	f.otps[email] = true
	return nil
}

func (f *fakeAuthenticator) VerifyLoginOTP(_ context.Context, email, code string) (signin.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = strings.ToLower(email)
	if !f.otps[email] || code != FakeCode {
		return signin.Session{}, &signin.BackendError{Status: 401, Message: "Invalid or expired OTP"}
	}
	delete(f.otps, email)
	return newSession(email), nil
}

func newSession(email string) signin.Session {
	return signin.Session{
		Token:     uuid.NewString(),
		Email:     email,
		ExpiresAt: time.Now().Add(12 * time.Hour).UTC(),
	}
}
