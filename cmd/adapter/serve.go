package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nupi-ai/plugin-audio-analysis/internal/analysis"
	"github.com/nupi-ai/plugin-audio-analysis/internal/audio"
	"github.com/nupi-ai/plugin-audio-analysis/internal/metrics"
	"github.com/nupi-ai/plugin-audio-analysis/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC analysis APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}
}

func serve(parent context.Context, flags *globalFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, warnings, err := loadConfig(flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return exitError{code: 1}
	}
	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	for _, warn := range warnings {
		logger.Warn(warn)
	}

	logger.Info("starting adapter",
		"adapter", "audio-analysis",
		"version", version,
		"engine_config", cfg.Engine,
		"http_listen_addr", cfg.HTTPListenAddr,
		"listen_addr", cfg.ListenAddr,
	)

	// Bind the gRPC port before loading anything so the runner can connect
	// and watch health while models initialize.
	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind gRPC listener: %w", err)
	}
	defer lis.Close()
	logger.Info("listener bound, port ready", "addr", lis.Addr().String())

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthgrpc.RegisterHealthServer(grpcServer, healthServer)
	setServing(healthServer, healthgrpc.HealthCheckResponse_NOT_SERVING)

	lazy := &server.LazyService{}
	server.RegisterAudioAnalysisServer(grpcServer, lazy)

	serverErr := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serverErr <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	logger.Info("gRPC server started (NOT_SERVING while initializing)")

	f, err := resolveEngine(cfg, logger)
	if err != nil {
		grpcServer.Stop()
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	analyzer, err := analysis.New(analysis.Options{
		NewVoice:  f.newVoice,
		NewTagger: f.newTagger,
		Decoder:   audio.NewLoader(cfg.FFmpegPath, logger),
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		grpcServer.Stop()
		return err
	}
	defer func() {
		if err := analyzer.Close(); err != nil {
			logger.Warn("closing models", "error", err)
		}
	}()

	if cfg.Preload {
		if err := analyzer.Preload(); err != nil {
			// Handles retry on first use, so a failed preload is not fatal.
			logger.Warn("model preload failed", "error", err)
		}
	}

	lazy.SetServer(server.NewGRPCService(analyzer, cfg, logger))

	if lvl, ok := parseLevel(cfg.LogLevel).(slog.Level); !ok || lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr: cfg.HTTPListenAddr,
		Handler: server.NewHTTPHandler(server.HTTPOptions{
			Analyzer: analyzer,
			Config:   cfg,
			Metrics:  m,
			Logger:   logger,
			Version:  version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	setServing(healthServer, healthgrpc.HealthCheckResponse_SERVING)
	logger.Info("adapter ready to serve requests", "engine", f.resolved, "http_addr", cfg.HTTPListenAddr)

	select {
	case err := <-serverErr:
		logger.Error("server terminated with error", "error", err)
		shutdown(logger, grpcServer, healthServer, httpServer)
		return exitError{code: 1}
	case <-ctx.Done():
		logger.Info("shutdown requested, stopping servers")
		shutdown(logger, grpcServer, healthServer, httpServer)
	}

	logger.Info("adapter stopped")
	return nil
}

func setServing(h *health.Server, s healthgrpc.HealthCheckResponse_ServingStatus) {
	h.SetServingStatus("", s)
	h.SetServingStatus(server.ServiceName, s)
}

// shutdown drains both servers, forcing the gRPC server to stop if it does
// not finish within shutdownTimeout.
func shutdown(logger *slog.Logger, grpcServer *grpc.Server, healthServer *health.Server, httpServer *http.Server) {
	setServing(healthServer, healthgrpc.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Warn("graceful stop timed out, forcing stop")
		grpcServer.Stop()
	}
}
