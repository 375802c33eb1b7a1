package paymentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/portal-flows/internal/payment-service/domain"
	"github.com/jcmexdev/portal-flows/internal/pkg/cache"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	paymentv1 "github.com/jcmexdev/portal-flows/internal/rpc/payment/v1"
)

// initiationTTL bounds how long a repeated initiation returns the same checkout.
const initiationTTL = 30 * time.Minute

type paymentServer struct {
	paymentv1.UnimplementedPaymentServer
	mu           sync.Mutex
	applications map[string]*domain.Application
	cache        cache.Cache
	checkoutBase string
}

// NewServer serves license payments for the given pending applications.
// checkoutBase prefixes the checkout URL handed back to the portal.
func NewServer(c cache.Cache, checkoutBase string, apps []domain.Application) *paymentServer {
	byslug := make(map[string]*domain.Application, len(apps))
	for i := range apps {
		app := apps[i]
		byslug[app.Slug] = &app
	}
	return &paymentServer{
		applications: byslug,
		cache:        c,
		checkoutBase: strings.TrimRight(checkoutBase, "/"),
	}
}

func (s *paymentServer) InitiateLicensePayment(ctx context.Context, req *paymentv1.InitiateLicensePaymentRequest) (*paymentv1.InitiateLicensePaymentResponse, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "Application reference is required")
	}

	// Retries of one confirmation share a key; other callers do not.
	cacheID := slug
	if idem := interceptors.IdempotencyKey(ctx); idem != "" {
		cacheID = slug + ":" + idem
	}
	key := s.cache.GenerateKey("initiate", cacheID)
	if cached, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "payment cache read failed", "slug", slug, "error", err)
	} else if cached != "" {
		var resp paymentv1.InitiateLicensePaymentResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			slog.InfoContext(ctx, "returning cached initiation", "slug", slug, "reference", resp.Reference)
			return &resp, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[slug]
	if !ok {
		slog.InfoContext(ctx, "license application not found", "slug", slug)
		return nil, status.Error(codes.NotFound, "License application not found")
	}

	switch app.Status {
	case domain.StatusPaid:
		return nil, status.Error(codes.FailedPrecondition, "This application has already been paid for")
	case domain.StatusPending:
		if req.Amount > 0 && !app.Accepts(req.Amount) {
			return nil, status.Errorf(codes.InvalidArgument, "Amount %.2f does not match the application fee", req.Amount)
		}
		app.Status = domain.StatusAwaitingPayment
		app.Reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	}

	resp := &paymentv1.InitiateLicensePaymentResponse{
		Reference:   app.Reference,
		CheckoutUrl: fmt.Sprintf("%s/%s", s.checkoutBase, app.Reference),
		Status:      string(app.Status),
		Metadata: map[string]string{
			"slug":    app.Slug,
			"license": app.LicenseClass,
			"amount":  fmt.Sprintf("%.2f", app.Fee),
		},
	}

	if b, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, string(b), initiationTTL); err != nil {
			slog.WarnContext(ctx, "payment cache write failed", "slug", slug, "error", err)
		}
	}

	slog.InfoContext(ctx, "payment initiated", "slug", slug, "reference", app.Reference, "fee", app.Fee)
	return resp, nil
}
