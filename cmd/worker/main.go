// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-dispatch/internal/config"
	"task-dispatch/internal/domain"
	"task-dispatch/internal/infra/etcd"
	"task-dispatch/internal/infra/fs"
	"task-dispatch/internal/tracing"
	"task-dispatch/internal/worker"

	"github.com/google/uuid"
)

func main() {
	// 1. Init logger, config, tracer
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tracerShutdown, err := tracing.InitTracer("task-dispatch-worker", os.Stderr, cfg.TracingEnabled)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	workerID := uuid.New().String()
	logger.Info("starting worker node", "worker_id", workerID, "label", cfg.WorkerLabel, "addr", cfg.WorkerListenAddr, "output_dir", cfg.OutputDir)

	// 2. Create root context for lifecycle management
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel)

	// 3. Start the HTTP server
	executor := fs.NewFileTaskExecutor(cfg.WorkerLabel, cfg.OutputDir, logger)
	workerServer := worker.NewServer(executor, cfg.WorkerLabel, logger)
	server := &http.Server{
		Addr:              cfg.WorkerListenAddr,
		Handler:           workerServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 4. One-shot registration with the coordinator; failure is not fatal
	registrar := worker.NewRegistrar(nil, cfg.APIRegisterURL, cfg.PublicURL, cfg.WorkerLabel, logger)
	if registrar.Enabled() {
		go func() {
			if err := registrar.RegisterOnce(rootCtx); err != nil {
				logger.Error("failed to register with coordinator", "error", err)
			}
		}()
	}

	// 5. Optional etcd announcement
	if len(cfg.EtcdEndpoints) > 0 && cfg.PublicURL != "" {
		etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			log.Fatalf("Failed to create etcd client: %v", err)
		}
		defer etcdClient.Close()

		registry := worker.NewRegistry(etcdClient, logger)
		regCtx, regCancel := context.WithTimeout(rootCtx, cfg.EtcdTimeout)
		err = registry.Register(regCtx, domain.WorkerSeed{ID: workerID, Label: cfg.WorkerLabel, Endpoint: cfg.PublicURL}, cfg.EtcdLeaseTTL)
		regCancel()
		if err != nil {
			log.Fatalf("Failed to announce worker in etcd: %v", err)
		}
		defer func() {
			deregCtx, deregCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer deregCancel()
			if err := registry.Deregister(deregCtx); err != nil {
				logger.Error("failed to deregister worker", "error", err)
			}
		}()
	}

	// 6. Block until shutdown signal
	<-rootCtx.Done()
	logger.Info("shutting down worker node gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("worker node shut down")
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received signal, initiating graceful shutdown", "signal", sig.String())
		cancel()
	}()
}
