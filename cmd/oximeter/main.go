// Command oximeter serves SpO2 and heart-rate estimates computed from raw
// red and infrared PPG traces.
//
// Clients submit one channel at a time; once both channels have arrived the
// ratio of ratios is computed and a new reading becomes available.
//
// The HTTP API listens on :5000 (configurable):
//   - POST /send_data - Submit {"indicator": "red"|"ir", "dataString": "v1,v2,..."}
//   - GET /retrieve_data - Current {"spo2", "hr"}
//   - GET /reading/latest - Last published snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// A gRPC health service listens on :5001. Service "pulseox.Oximeter"
// reports NOT_SERVING until the first pairing completes.
//
// Usage:
//
//	oximeter -listen=:5000 -storage=redis -redis-addr=redis:6379
//
// Environment variables:
//
//	LISTEN          - HTTP listen address (default: :5000)
//	GRPC_LISTEN     - gRPC health listen address (default: :5001)
//	STORAGE         - Snapshot store: memory, redis (default: memory)
//	REDIS_ADDR      - Redis server address
//	SNAPSHOT_TTL    - Published snapshot TTL (default: 5m)
//	RATIO_FALLBACK  - Use the unfiltered mean when all ratios are outliers
//	MAX_SAMPLES     - Maximum samples per submission (default: 100000)
//	MAX_BODY_BYTES  - Maximum request body size (default: 4MiB)
//	LOG_LEVEL       - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT      - Logging format: text, json (default: text)
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/pulseox/cmd/oximeter/config"
	"github.com/HatiCode/pulseox/cmd/oximeter/logger"
	"github.com/HatiCode/pulseox/cmd/oximeter/metrics"
	"github.com/HatiCode/pulseox/cmd/oximeter/router"
	"github.com/HatiCode/pulseox/cmd/oximeter/store"
	"github.com/HatiCode/pulseox/pkg/httpx"
	"github.com/HatiCode/pulseox/pkg/oximeter"
	"github.com/HatiCode/pulseox/pkg/ppg"
	pulseoxtls "github.com/HatiCode/pulseox/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg)
	log.Info("starting pulseox oximeter",
		"version", version,
		"listen", cfg.Listen,
		"grpc_listen", cfg.GRPCListen,
		"storage", cfg.Storage,
		"tls_enabled", cfg.TLS.Enabled,
		"mtls", cfg.TLS.Mutual(),
	)

	pipeline, err := ppg.NewPipeline(cfg.Sampling, cfg.MaxSamples)
	if err != nil {
		log.Error("invalid sampling configuration", "error", err)
		os.Exit(1)
	}

	snapshots, err := store.New(cfg, log)
	if err != nil {
		log.Error("failed to create snapshot store", "error", err)
		os.Exit(1)
	}
	if closer, ok := snapshots.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	svc := NewService(
		pipeline,
		oximeter.New(ppg.RatioPolicy{FallbackToMean: cfg.RatioFallback}),
		snapshots,
		m,
		healthServer,
		cfg.PublishTimeout,
		log,
	)

	mux := router.SetupRoutes(svc, snapshots, router.Options{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:  storeHealth(snapshots),
	}, log)
	handler := httpx.Chain(mux,
		httpx.RequestID(),
		httpx.Recovery(log),
		httpx.Logging(log),
		httpx.MaxBytes(cfg.MaxBodyBytes),
	)
	httpServer := httpx.NewServer(cfg.Listen, handler, log)

	var grpcOpts []grpc.ServerOption
	if cfg.TLS.Enabled {
		tlsConfig, err := pulseoxtls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
		if err != nil {
			log.Error("failed to load TLS configuration", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(tlsConfig)
		grpcOpts = append(grpcOpts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	grpcServer := grpc.NewServer(grpcOpts...)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)

	if cfg.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			log.Error("failed to listen", "address", cfg.GRPCListen, "error", err)
			os.Exit(1)
		}
		go func() {
			log.Info("grpc health server listening", "address", cfg.GRPCListen)
			errCh <- grpcServer.Serve(lis)
		}()
	}

	go func() {
		errCh <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// storeHealth pings the store when it supports it.
func storeHealth(s any) func() error {
	pinger, ok := s.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return pinger.Ping(ctx)
	}
}
