package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrContinuationInvalid  = errors.New("continuation: invalid token")
	ErrContinuationRedeemed = errors.New("continuation: token already used")
	ErrVehicleRequired      = errors.New("continuation: vehicle reference required")
)

const continuationIssuer = "portal-flows/confirmation"

// Redeemer marks continuation ids as used. Redeem reports false when the id
// was already redeemed.
type Redeemer interface {
	Redeem(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type continuationClaims struct {
	Path  string       `json:"path"`
	State RequestState `json:"state"`
	jwt.RegisteredClaims
}

// ContinuationIssuer signs and verifies "register a vehicle, then come back"
// continuations.
type ContinuationIssuer struct {
	secret   []byte
	ttl      time.Duration
	redeemer Redeemer
	now      func() time.Time
}

// NewContinuationIssuer builds an issuer. redeemer may be nil, in which case
// tokens can be resumed more than once until they expire.
func NewContinuationIssuer(secret string, ttl time.Duration, redeemer Redeemer) *ContinuationIssuer {
	return &ContinuationIssuer{
		secret:   []byte(secret),
		ttl:      ttl,
		redeemer: redeemer,
		now:      time.Now,
	}
}

// Issue builds a continuation back to the confirmation screen with state.
func (i *ContinuationIssuer) Issue(state RequestState) (Continuation, error) {
	now := i.now()
	claims := continuationClaims{
		Path:  RouteConfirmRequest,
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    continuationIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Continuation{}, fmt.Errorf("continuation: sign: %w", err)
	}
	return Continuation{Path: RouteConfirmRequest, State: state, Token: token}, nil
}

// Resume verifies token and returns the request to mount the confirmation
// screen with, now carrying the registered vehicle.
func (i *ContinuationIssuer) Resume(ctx context.Context, token string, vehicle *VehicleRef) (OrderRequest, error) {
	if vehicle == nil || vehicle.ID == "" {
		return OrderRequest{}, ErrVehicleRequired
	}

	claims := &continuationClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(continuationIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return OrderRequest{}, fmt.Errorf("%w: %v", ErrContinuationInvalid, err)
	}
	if claims.Path != RouteConfirmRequest {
		return OrderRequest{}, fmt.Errorf("%w: unexpected return path %q", ErrContinuationInvalid, claims.Path)
	}
	if claims.State.Type != VehiclePaper {
		return OrderRequest{}, fmt.Errorf("%w: unexpected request type %q", ErrContinuationInvalid, claims.State.Type)
	}

	if i.redeemer != nil {
		ttl := claims.ExpiresAt.Sub(i.now())
		if ttl <= 0 {
			ttl = time.Second
		}
		first, err := i.redeemer.Redeem(ctx, claims.ID, ttl)
		if err != nil {
			return OrderRequest{}, fmt.Errorf("continuation: redeem %s: %w", claims.ID, err)
		}
		if !first {
			return OrderRequest{}, ErrContinuationRedeemed
		}
	}

	req := claims.State.Request()
	req.VehicleRef = vehicle
	return req, nil
}
