package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/jcmexdev/portal-flows/internal/config"
	paymentservice "github.com/jcmexdev/portal-flows/internal/payment-service/app"
	"github.com/jcmexdev/portal-flows/internal/payment-service/domain"
	"github.com/jcmexdev/portal-flows/internal/pkg/cache"
	"github.com/jcmexdev/portal-flows/internal/pkg/interceptors"
	"github.com/jcmexdev/portal-flows/internal/pkg/telemetry"
	paymentv1 "github.com/jcmexdev/portal-flows/internal/rpc/payment/v1"
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

	shutdown, err := telemetry.SetupTracer(ctx, "payment-service", cfg.OTLPEndpoint, cfg.Environment)
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

	lis, err := net.Listen("tcp", cfg.Payment.ListenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Payment.ListenAddr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)

	var store cache.Cache
	if cfg.RedisAddr != "" {
		store = cache.NewRedisCache(cfg.RedisAddr, "payment")
	} else {
		slog.Warn("REDIS_ADDR not set, using in-memory initiation cache")
		store = cache.NewMemory("payment")
	}

	paymentSrv := paymentservice.NewServer(store, cfg.Payment.CheckoutBaseURL, domain.SeedApplications())
	paymentv1.RegisterPaymentServer(grpcServer, paymentSrv)

	go func() {
		<-ctx.Done()
		slog.Info("payment service shutting down")
		grpcServer.GracefulStop()
	}()

	slog.Info("payment service gRPC running", "addr", cfg.Payment.ListenAddr)

	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
