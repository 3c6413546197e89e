// internal/scheduler/cron_scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"task-dispatch/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// cronScheduler triggers recurring dispatches at the right time.
type cronScheduler struct {
	cron       *cron.Cron
	dispatcher domain.Dispatcher
	mu         sync.Mutex
	entries    map[string]cron.EntryID
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewCronScheduler creates a scheduler whose expressions carry a seconds field.
func NewCronScheduler(dispatcher domain.Dispatcher, logger *slog.Logger) domain.Schedular {
	return &cronScheduler{
		cron:       cron.New(cron.WithSeconds()),
		dispatcher: dispatcher,
		entries:    make(map[string]cron.EntryID),
		logger:     logger.With("component", "cron-scheduler"),
		tracer:     otel.Tracer("task-dispatch-scheduler"),
	}
}

func (s *cronScheduler) Start(ctx context.Context) error {
	s.logger.Info("cron scheduler started")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopping...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

// AddSchedule adds a schedule, replacing any existing one with the same name.
func (s *cronScheduler) AddSchedule(sch domain.Schedule) error {
	if sch.Count <= 0 {
		return fmt.Errorf("%w: schedule %q needs a positive count", domain.ErrValidation, sch.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[sch.Name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, sch.Name)
	}

	job := &scheduledDispatch{
		schedule:   sch,
		dispatcher: s.dispatcher,
		logger:     s.logger.With("schedule", sch.Name),
		tracer:     s.tracer,
	}
	entryID, err := s.cron.AddJob(sch.CronExpr, job)
	if err != nil {
		s.logger.Error("failed to add schedule to cron", "schedule", sch.Name, "error", err)
		return fmt.Errorf("%w: schedule %q: %v", domain.ErrValidation, sch.Name, err)
	}

	s.entries[sch.Name] = entryID
	s.logger.Info("added schedule", "schedule", sch.Name, "cron_expr", sch.CronExpr, "count", sch.Count)
	return nil
}

// RemoveSchedule removes a schedule. Unknown names are ignored.
func (s *cronScheduler) RemoveSchedule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, name)
		s.logger.Info("removed schedule", "schedule", name)
	}
	return nil
}

// scheduledDispatch is the cron.Job run on every tick of a schedule.
type scheduledDispatch struct {
	schedule   domain.Schedule
	dispatcher domain.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Run is called by the cron library.
func (j *scheduledDispatch) Run() {
	ctx, span := j.tracer.Start(context.Background(), "scheduler.Dispatch",
		trace.WithAttributes(
			attribute.String("schedule.name", j.schedule.Name),
			attribute.Int("task.count", j.schedule.Count),
		))
	defer span.End()

	report, err := j.dispatcher.DispatchTask(ctx, domain.TaskRequest{Name: j.schedule.Name, Count: j.schedule.Count})
	if err != nil {
		j.logger.Error("scheduled dispatch failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return
	}
	j.logger.Info("scheduled dispatch finished",
		"task_id", report.TaskID,
		"success_servers", report.Final.SuccessServers,
		"failed_servers", report.Final.FailedServers,
		"created_total", report.Final.CreatedTotal,
	)
}
