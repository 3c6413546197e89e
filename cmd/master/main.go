// cmd/master/main.go
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

	http_api "task-dispatch/internal/api/http"
	"task-dispatch/internal/config"
	"task-dispatch/internal/infra/etcd"
	http_infra "task-dispatch/internal/infra/http"
	"task-dispatch/internal/infra/memory"
	"task-dispatch/internal/master"
	"task-dispatch/internal/scheduler"
	"task-dispatch/internal/tracing"
	"task-dispatch/internal/usecase"

	"github.com/google/uuid"
)

func main() {
	// 1. Initialize logger and configuration
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tracerShutdown, err := tracing.InitTracer("task-dispatch-master", os.Stderr, cfg.TracingEnabled)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	nodeID := uuid.New().String()
	logger.Info("starting task dispatch coordinator", "node_id", nodeID, "worker_timeout", cfg.WorkerTimeout.String())

	// 2. Create root context for lifecycle management
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel)

	// 3. Registry, seeded once from configuration
	registry := memory.NewWorkerRegistry()
	workerService := usecase.NewWorkerService(registry, logger)
	if _, err := workerService.Seed(rootCtx, cfg.Workers); err != nil {
		log.Fatalf("Failed to seed worker registry: %v", err)
	}

	// 4. Dispatcher sharing one HTTP client (and its connection pool) across calls
	executor := http_infra.NewHttpRemoteExecutor(&http.Client{})
	dispatcher := master.NewDispatcher(registry, executor, cfg.WorkerTimeout, logger)
	taskService := usecase.NewTaskService(dispatcher, logger)

	// 5. Optional etcd discovery
	if len(cfg.EtcdEndpoints) > 0 {
		etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			log.Fatalf("Failed to create etcd client: %v", err)
		}
		defer etcdClient.Close()
		logger.Info("connected to etcd", "endpoints", cfg.EtcdEndpoints)

		discovery := master.NewWorkerDiscovery(etcdClient, registry, cfg.EtcdTimeout, logger)
		go discovery.WatchWorkers(rootCtx)
	}

	// 6. Optional recurring dispatches
	if len(cfg.Schedules) > 0 {
		schedulerService := usecase.NewSchedularService(scheduler.NewCronScheduler(dispatcher, logger), cfg.Schedules, logger)
		go func() {
			if err := schedulerService.Start(rootCtx); err != nil && err != context.Canceled {
				logger.Error("scheduler service stopped with error", "error", err)
			}
		}()
	}

	// 7. Start HTTP API server
	handler := http_api.NewHandler(workerService, taskService, logger)
	server := &http.Server{
		Addr:              cfg.HttpListenAddr,
		Handler:           handler.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP API server", "addr", cfg.HttpListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 8. Block until shutdown
	<-rootCtx.Done()
	logger.Info("shutting down coordinator gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("coordinator shut down")
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
