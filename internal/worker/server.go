// internal/worker/server.go
package worker

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	http_api "task-dispatch/internal/api/http"
	"task-dispatch/internal/domain"
	"task-dispatch/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// executeRequest is the body of POST /execute.
type executeRequest struct {
	TaskID string `json:"taskId"`
	Name   string `json:"name" validate:"required"`
	Count  *int   `json:"count" validate:"required,gte=0"`
}

// Server is the HTTP face of a worker node.
type Server struct {
	executor domain.TaskExecutor
	label    string
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
}

// NewServer creates the worker HTTP server around executor.
func NewServer(executor domain.TaskExecutor, label string, logger *slog.Logger) *Server {
	return &Server{
		executor: executor,
		label:    label,
		logger:   logger.With("component", "worker-server"),
		validate: validator.New(),
		tracer:   otel.Tracer("task-dispatch-worker"),
		now:      time.Now,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(http_api.CORS([]string{"*"}))
	r.Use(http_api.Instrument(s.tracer))

	r.Post("/execute", s.handleExecute)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"ok": false, "error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"label": s.label,
		"time":  s.now().UnixMilli(),
	})
}

// handleExecute runs the batch synchronously; the coordinator waits for it.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	executionID := uuid.NewString()
	ctx, span := s.tracer.Start(r.Context(), "worker.Execute",
		trace.WithAttributes(attribute.String("execution.id", executionID)))
	defer span.End()

	var body executeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(body); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
		respondError(w, http.StatusBadRequest, "name is required and count must be >= 0")
		return
	}

	req := domain.ExecuteRequest{TaskID: body.TaskID, Name: body.Name, Count: *body.Count}
	logger := s.logger.With("execution_id", executionID, "task_id", req.TaskID)
	span.SetAttributes(attribute.String("task.id", req.TaskID), attribute.Int("task.count", req.Count))
	logger.Info("received execute request", "name", req.Name, "count", req.Count)

	resp, err := s.executor.Execute(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "execution failed")
		span.RecordError(err)
		metrics.ExecutionsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, domain.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("execution failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.ExecutionsTotal.WithLabelValues("success").Inc()
	respondJSON(w, http.StatusOK, resp)
}
