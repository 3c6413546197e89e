package usecase

import (
	"context"
	"log/slog"

	"task-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TaskService validates task requests and hands them to the dispatcher.
type TaskService struct {
	dispatcher domain.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewTaskService creates a new TaskService instance.
func NewTaskService(dispatcher domain.Dispatcher, logger *slog.Logger) *TaskService {
	return &TaskService{
		dispatcher: dispatcher,
		logger:     logger.With("component", "task-service"),
		tracer:     otel.Tracer("task-dispatch-usecase"),
	}
}

// Create runs a task to completion and returns its report.
func (s *TaskService) Create(ctx context.Context, req domain.TaskRequest) (*domain.TaskReport, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateTask")
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid task request")
		return nil, err
	}
	span.SetAttributes(attribute.String("task.name", req.Name), attribute.Int("task.count", req.Count))

	report, err := s.dispatcher.DispatchTask(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to dispatch task")
		s.logger.Warn("task not dispatched", "name", req.Name, "count", req.Count, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("task.id", report.TaskID))
	return report, nil
}
