package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/portal-flows/internal/signin"
)

func TestHTTPAuthenticator(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPaths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPaths = append(gotPaths, r.URL.Path)
		mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			if body["password"] != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Wrong password"}`))
				return
			}
			if body["email"] == "2fa@example.com" {
				_, _ = w.Write([]byte(`{"twoFactorRequired":true,"challengeId":"c1"}`))
				return
			}
			_, _ = w.Write([]byte(`{"token":"t1","email":"ada@example.com"}`))
		case "/auth/otp/send":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	a := NewHTTPAuthenticator(srv.URL+"/", time.Second)
	ctx := context.Background()

	res, err := a.Login(ctx, signin.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "t1", res.Session.Token)

	res, err = a.Login(ctx, signin.Credentials{Email: "2fa@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, res.Challenge)
	assert.Equal(t, "c1", res.Challenge.ID)

	_, err = a.Login(ctx, signin.Credentials{Email: "ada@example.com", Password: "nope"})
	var be *signin.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "Wrong password", be.Message)

	require.NoError(t, a.SendLoginOTP(ctx, "ada@example.com"))

	_, err = a.VerifyLoginOTP(ctx, "ada@example.com", "1")
	require.True(t, errors.As(err, &be))
	assert.Empty(t, be.Message)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/auth/login", "/auth/login", "/auth/login", "/auth/otp/send", "/auth/otp/verify"}, gotPaths)
}

func TestFakeAuthenticator(t *testing.T) {
	a := NewFakeAuthenticator(DevUsers())
	ctx := context.Background()

	res, err := a.Login(ctx, signin.Credentials{Email: "Driver@portal.local", Password: "password"})
	require.NoError(t, err)
	require.NotNil(t, res.Session)

	res, err = a.Login(ctx, signin.Credentials{Email: "admin@portal.local", Password: "password"})
	require.NoError(t, err)
	require.NotNil(t, res.Challenge)

	_, err = a.VerifyTwoFactor(ctx, res.Challenge.ID, "000000")
	assert.Error(t, err)
	s, err := a.VerifyTwoFactor(ctx, res.Challenge.ID, FakeCode)
	require.NoError(t, err)
	assert.Equal(t, "admin@portal.local", s.Email)

	_, err = a.VerifyLoginOTP(ctx, "driver@portal.local", FakeCode)
	assert.Error(t, err, "no OTP was sent")
	require.NoError(t, a.SendLoginOTP(ctx, "driver@portal.local"))
	_, err = a.VerifyLoginOTP(ctx, "driver@portal.local", FakeCode)
	assert.NoError(t, err)

	_, err = a.Login(ctx, signin.Credentials{Email: "driver@portal.local", Password: "x"})
	assert.Error(t, err)
}
