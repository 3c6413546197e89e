package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"task-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WorkerService owns worker registration and listing.
type WorkerService struct {
	registry domain.WorkerRegistry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewWorkerService creates a new WorkerService instance.
func NewWorkerService(registry domain.WorkerRegistry, logger *slog.Logger) *WorkerService {
	return &WorkerService{
		registry: registry,
		logger:   logger.With("component", "worker-service"),
		tracer:   otel.Tracer("task-dispatch-usecase"),
	}
}

// Register adds a worker or refreshes an existing one. An empty label becomes
// "worker"; an empty id lets the registry generate one.
func (s *WorkerService) Register(ctx context.Context, id, label, endpoint string) (domain.Worker, error) {
	ctx, span := s.tracer.Start(ctx, "service.RegisterWorker")
	defer span.End()

	label = strings.TrimSpace(label)
	if label == "" {
		label = domain.DefaultWorkerLabel
	}

	w, err := s.registry.Upsert(ctx, strings.TrimSpace(id), label, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to register worker")
		return domain.Worker{}, err
	}
	span.SetAttributes(attribute.String("worker.id", w.ID), attribute.String("worker.url", w.Endpoint))
	s.logger.Info("worker registered", "worker_id", w.ID, "label", w.Label, "url", w.Endpoint)
	return w, nil
}

// List returns the registry snapshot in registration order.
func (s *WorkerService) List(ctx context.Context) ([]domain.Worker, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListWorkers")
	defer span.End()

	workers, err := s.registry.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list workers")
		return nil, err
	}
	span.SetAttributes(attribute.Int("workers.count", len(workers)))
	return workers, nil
}

// Seed bulk loads the startup worker list. Invalid seeds are logged and
// skipped. The registry is marked seeded even when the list is empty.
func (s *WorkerService) Seed(ctx context.Context, seeds []domain.WorkerSeed) (int, error) {
	n, err := s.registry.BulkLoad(ctx, seeds)
	if errors.Is(err, domain.ErrAlreadySeeded) {
		return 0, err
	}
	if err != nil {
		s.logger.Warn("some configured workers were skipped", "error", err)
	}
	s.logger.Info("loaded configured workers", "loaded", n, "configured", len(seeds))
	return n, nil
}
