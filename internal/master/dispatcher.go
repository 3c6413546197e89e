// internal/master/dispatcher.go
package master

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"task-dispatch/internal/domain"
	"task-dispatch/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWorkerTimeout bounds a single execute call when no timeout is configured.
const DefaultWorkerTimeout = 60 * time.Second

// Dispatcher splits tasks across every registered worker and calls them in parallel.
type Dispatcher struct {
	registry domain.WorkerRegistry
	executor domain.RemoteExecutor
	timeout  time.Duration
	taskSeq  atomic.Uint64
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher. timeout applies to each worker call on its own.
func NewDispatcher(registry domain.WorkerRegistry, executor domain.RemoteExecutor, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultWorkerTimeout
	}
	return &Dispatcher{
		registry: registry,
		executor: executor,
		timeout:  timeout,
		logger:   logger.With("component", "dispatcher"),
		tracer:   otel.Tracer("task-dispatch-dispatcher"),
	}
}

// DispatchTask plans req over a registry snapshot, calls every assigned worker
// concurrently and waits for all of them before building the report. Worker
// failures end up in the report; only precondition failures are returned.
func (d *Dispatcher) DispatchTask(ctx context.Context, req domain.TaskRequest) (*domain.TaskReport, error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.DispatchTask", trace.WithAttributes(
		attribute.String("task.name", req.Name),
		attribute.Int("task.count", req.Count),
	))
	defer span.End()

	// 1. Snapshot the registry.
	workers, err := d.registry.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list workers")
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	if len(workers) == 0 {
		span.SetStatus(codes.Error, "no workers available")
		return nil, domain.ErrNoWorkersAvailable
	}

	// 2. Plan, dropping workers that get nothing.
	taskID := fmt.Sprintf("task-%d", d.taskSeq.Add(1))
	plan, err := Distribute(req.Count, workers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to plan task")
		return nil, err
	}
	assignments := make([]domain.Assignment, 0, len(plan))
	for _, a := range plan {
		if a.Count > 0 {
			assignments = append(assignments, a)
		}
	}
	span.SetAttributes(attribute.String("task.id", taskID), attribute.Int("task.assigned_workers", len(assignments)))

	logger := d.logger.With("task_id", taskID, "task_name", req.Name)
	logger.Info("dispatching task", "count", req.Count, "available_workers", len(workers), "assigned_workers", len(assignments))

	// 3. Fan out. Calls must outlive a cancelled caller; each has its own deadline.
	callCtx := context.WithoutCancel(ctx)
	start := time.Now()
	results := make([]domain.DispatchResult, len(assignments))
	var wg sync.WaitGroup
	for i, a := range assignments {
		wg.Add(1)
		go func(i int, a domain.Assignment) {
			defer wg.Done()
			results[i] = d.callWorker(callCtx, logger, taskID, req.Name, a)
		}(i, a)
	}
	wg.Wait()
	settledAt := time.Now()

	// 4. Every worker we reached out to counts as seen, whatever the outcome.
	for _, a := range assignments {
		if err := d.registry.Touch(callCtx, a.Worker.ID, settledAt); err != nil {
			logger.Warn("failed to refresh worker last-seen time", "worker_id", a.Worker.ID, "error", err)
		}
	}

	// 5. Aggregate.
	report := &domain.TaskReport{
		TaskID:           taskID,
		Name:             req.Name,
		TotalCount:       req.Count,
		AvailableServers: len(workers),
		Assignments:      make([]domain.PlannedAssignment, len(assignments)),
		PerWorker:        results,
	}
	for i, a := range assignments {
		report.Assignments[i] = domain.PlannedAssignment{
			WorkerID:      a.Worker.ID,
			Label:         a.Worker.Label,
			AssignedCount: a.Count,
		}
	}
	for _, r := range results {
		if r.OK {
			report.Final.SuccessServers++
			created := domain.CreatedCount(r.Result)
			if created > math.MaxInt-report.Final.CreatedTotal {
				report.Final.CreatedTotal = math.MaxInt
			} else {
				report.Final.CreatedTotal += created
			}
		} else {
			report.Final.FailedServers++
		}
	}
	report.Final.TotalElapsedMs = settledAt.Sub(start).Milliseconds()

	metrics.TasksDispatchedTotal.Inc()
	span.SetAttributes(
		attribute.Int("task.success_servers", report.Final.SuccessServers),
		attribute.Int("task.failed_servers", report.Final.FailedServers),
		attribute.Int("task.created_total", report.Final.CreatedTotal),
	)
	logger.Info("task settled",
		"success_servers", report.Final.SuccessServers,
		"failed_servers", report.Final.FailedServers,
		"created_total", report.Final.CreatedTotal,
		"elapsed_ms", report.Final.TotalElapsedMs,
	)
	return report, nil
}

// callWorker performs one execute call and classifies its outcome. It never fails.
func (d *Dispatcher) callWorker(ctx context.Context, logger *slog.Logger, taskID, name string, a domain.Assignment) (res domain.DispatchResult) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res = domain.DispatchResult{
		WorkerID:      a.Worker.ID,
		Label:         a.Worker.Label,
		Endpoint:      a.Worker.Endpoint,
		AssignedCount: a.Count,
	}
	logger = logger.With("worker_id", a.Worker.ID, "worker_url", a.Worker.Endpoint)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if r := recover(); r != nil {
			res.OK = false
			res.Status = 0
			res.Result = nil
			res.Error = fmt.Sprintf("panic: %v", r)
			logger.Error("worker call panicked", "panic", r)
			metrics.WorkerCallsTotal.WithLabelValues("unreachable").Inc()
		}
		res.ElapsedMs = elapsed.Milliseconds()
		metrics.WorkerCallDuration.Observe(elapsed.Seconds())
	}()

	resp, err := d.executor.Execute(ctx, a.Worker.Endpoint, domain.ExecuteRequest{
		TaskID: taskID,
		Name:   name,
		Count:  a.Count,
	})

	switch {
	case err != nil:
		res.Error = err.Error()
		if res.Error == "" {
			res.Error = "request failed"
		}
		logger.Warn("worker call did not complete", "error", err)
		metrics.WorkerCallsTotal.WithLabelValues("unreachable").Inc()
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.OK = true
		res.Status = resp.StatusCode
		res.Result = resp.Payload
		metrics.WorkerCallsTotal.WithLabelValues("ok").Inc()
	default:
		res.Status = resp.StatusCode
		res.Result = resp.Payload
		if msg, ok := domain.PayloadError(resp.Payload); ok {
			res.Error = msg
		} else {
			res.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		logger.Warn("worker call returned an error status", "status", resp.StatusCode, "error", res.Error)
		metrics.WorkerCallsTotal.WithLabelValues("http_error").Inc()
	}
	return res
}
