package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jcmexdev/portal-flows/internal/api-gateway/infra/adapters/auth"
	"github.com/jcmexdev/portal-flows/internal/api-gateway/infra/adapters/payment"
	"github.com/jcmexdev/portal-flows/internal/api-gateway/infra/adapters/screens"
	"github.com/jcmexdev/portal-flows/internal/api-gateway/infra/httpx"
	"github.com/jcmexdev/portal-flows/internal/config"
	"github.com/jcmexdev/portal-flows/internal/confirmation"
	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog/sqlite"
	"github.com/jcmexdev/portal-flows/internal/pkg/cache"
	"github.com/jcmexdev/portal-flows/internal/pkg/telemetry"
	paymentv1 "github.com/jcmexdev/portal-flows/internal/rpc/payment/v1"
	"github.com/jcmexdev/portal-flows/internal/signin"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, "api-gateway", cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.Gateway.FlowLogPath), 0o755); err != nil {
		slog.Error("failed to create flow log directory", "path", cfg.Gateway.FlowLogPath, "error", err)
		os.Exit(1)
	}
	flowRepo, err := sqlite.Open(cfg.Gateway.FlowLogPath)
	if err != nil {
		slog.Error("failed to open flow log", "path", cfg.Gateway.FlowLogPath, "error", err)
		os.Exit(1)
	}
	defer flowRepo.Close()

	var store cache.Cache
	if cfg.RedisAddr != "" {
		store = cache.NewRedisCache(cfg.RedisAddr, "gateway")
	} else {
		slog.Warn("REDIS_ADDR not set, continuations are redeemed in memory")
		store = cache.NewMemory("gateway")
	}
	continuations := confirmation.NewContinuationIssuer(
		cfg.Gateway.ContinuationSecret,
		cfg.Gateway.ContinuationTTL,
		cache.NewRedeemer(store, "continuation"),
	)

	var payments confirmation.PaymentInitiator
	if cfg.Gateway.FakePayments {
		slog.Warn("using in-process fake payments")
		payments = payment.NewFakeInitiator(cfg.Payment.CheckoutBaseURL)
	} else {
		payConn := createGRPCConn(cfg.Payment.ServiceAddr)
		defer payConn.Close()
		payments = payment.NewGRPCInitiator(paymentv1.NewPaymentClient(payConn), cfg.Payment.Timeout)
	}

	var authenticator signin.Authenticator
	if cfg.Auth.BackendURL != "" {
		authenticator = auth.NewHTTPAuthenticator(cfg.Auth.BackendURL, cfg.Auth.Timeout)
	} else {
		slog.Warn("AUTH_BACKEND_URL not set, using in-memory dev accounts")
		authenticator = auth.NewFakeAuthenticator(auth.DevUsers())
	}

	handler := httpx.NewHandler(httpx.Deps{
		Catalog:       cfg.Catalog(),
		Screens:       screens.NewMemory(time.Hour),
		Payments:      payments,
		Continuations: continuations,
		FlowLog:       flowRepo,
		SignIn: signin.NewFlow(authenticator, signin.Options{
			OTPPerMinute: cfg.Auth.OTPPerMinute,
			OTPBurst:     cfg.Auth.OTPBurst,
		}),
		Cookies: httpx.CookieOptions{
			RememberTTL: cfg.Auth.RememberCookieTTL,
			Secure:      cfg.Environment != "local",
		},
	})

	srv := &http.Server{
		Addr:              cfg.Gateway.HTTPAddr,
		Handler:           httpx.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("API gateway running", "addr", cfg.Gateway.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("API gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func createGRPCConn(addr string) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		slog.Error("could not connect", "addr", addr, "error", err)
		os.Exit(1)
	}
	return conn
}
