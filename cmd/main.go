package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ev-faq-dialogue-service/internal/app"
	"ev-faq-dialogue-service/internal/config"
	httpapi "ev-faq-dialogue-service/internal/http"
	"ev-faq-dialogue-service/internal/observability"
)

func main() {
	// Best effort: local development reads .env, deployments use real env.
	_ = godotenv.Load()

	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("startup failed")
	}

	// Metrics and health on their own port.
	obs := observability.NewServer(":" + cfg.Observability.MetricsPort)
	obs.Start()

	// Dialogue and ops API: websocket sessions plus search/reindex/status.
	httpServer := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(application),
		// No write timeout: session connections are long-lived and a
		// reindex over a slow embedder can exceed any fixed bound.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		application.Logger.Info().Str("port", cfg.Service.HTTPPort).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	// gRPC carries only cluster plumbing: health checks and reflection.
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		application.Logger.Fatal().Err(err).Msg("failed to listen")
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.StreamInterceptor(observability.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("ev.faq.dialogue.DialogueService", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	go func() {
		application.Logger.Info().Str("port", cfg.Service.GRPCPort).Msg("gRPC health server started")
		if err := grpcServer.Serve(lis); err != nil {
			application.Logger.Fatal().Err(err).Msg("grpc serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Logger.Info().Msg("shutdown signal received")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Sessions drain first so clients hear session_closed before the
	// listeners go away.
	application.Shutdown()
	if err := httpServer.Shutdown(ctx); err != nil {
		application.Logger.Warn().Err(err).Msg("http shutdown failed")
	}
	grpcServer.GracefulStop()
	_ = obs.Shutdown(ctx)
}
