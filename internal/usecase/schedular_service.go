package usecase

import (
	"context"
	"log/slog"

	"task-dispatch/internal/domain"
)

// SchedularService registers the configured recurring dispatches and runs the
// scheduler until the context is cancelled.
type SchedularService struct {
	schedular domain.Schedular
	schedules []domain.Schedule
	logger    *slog.Logger
}

func NewSchedularService(schedular domain.Schedular, schedules []domain.Schedule, logger *slog.Logger) *SchedularService {
	return &SchedularService{
		schedular: schedular,
		schedules: schedules,
		logger:    logger.With("component", "schedular-service"),
	}
}

// Start blocks until ctx is done. A schedule that cannot be added is logged and skipped.
func (s *SchedularService) Start(ctx context.Context) error {
	added := 0
	for _, sch := range s.schedules {
		if err := s.schedular.AddSchedule(sch); err != nil {
			s.logger.Error("failed to add schedule", "schedule", sch.Name, "error", err)
			continue
		}
		added++
	}
	s.logger.Info("scheduler service starting", "schedules", added)
	return s.schedular.Start(ctx)
}
