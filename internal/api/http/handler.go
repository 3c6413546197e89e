// internal/api/http/handler.go
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"task-dispatch/internal/domain"
	"task-dispatch/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler serves the coordinator API.
type Handler struct {
	workers  *usecase.WorkerService
	tasks    *usecase.TaskService
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewHandler creates a new Handler and initializes the validator.
func NewHandler(workers *usecase.WorkerService, tasks *usecase.TaskService, logger *slog.Logger) *Handler {
	return &Handler{
		workers:  workers,
		tasks:    tasks,
		logger:   logger.With("component", "api-handler"),
		validate: validator.New(),
		tracer:   otel.Tracer("task-dispatch-api"),
	}
}

// Router builds the HTTP router.
func (h *Handler) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS(corsOrigins))
	r.Use(Instrument(h.tracer))

	r.Route("/api", func(r chi.Router) {
		r.Get("/workers", h.handleListWorkers)
		r.Post("/workers/register", h.handleRegisterWorker)
		r.Post("/tasks", h.handleCreateTask)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"ok":    false,
		"error": message,
	})
}

func (h *Handler) respondValidationError(w http.ResponseWriter, span trace.Span, err error) {
	span.SetStatus(codes.Error, "Validation failed")
	span.RecordError(err)

	var validationErrors []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			validationErrors = append(validationErrors,
				"Field '"+fe.Field()+"' failed on the '"+fe.Tag()+"' tag.",
			)
		}
	} else {
		validationErrors = append(validationErrors, err.Error())
	}
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"ok":      false,
		"error":   "Validation failed",
		"details": validationErrors,
	})
}

// handleListWorkers handles GET /api/workers.
func (h *Handler) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ListWorkers")
	defer span.End()

	workers, err := h.workers.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list workers")
		span.RecordError(err)
		h.logger.Error("error listing workers", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]WorkerResponse, len(workers))
	for i, wk := range workers {
		out[i] = NewWorkerResponse(wk)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"workers": out,
	})
}

// handleRegisterWorker handles POST /api/workers/register.
func (h *Handler) handleRegisterWorker(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.RegisterWorker")
	defer span.End()

	var req RegisterWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, span, err)
		return
	}

	worker, err := h.workers.Register(ctx, req.ID, req.Label, req.URL)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to register worker")
		span.RecordError(err)
		if errors.Is(err, domain.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("error registering worker", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	span.SetAttributes(attribute.String("worker.id", worker.ID))
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"worker": NewWorkerResponse(worker),
	})
}

// handleCreateTask handles POST /api/tasks. It blocks until every assigned
// worker call has settled.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.CreateTask")
	defer span.End()

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Failed to decode request body")
		span.RecordError(err)
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, span, err)
		return
	}

	report, err := h.tasks.Create(ctx, req.ToDomain())
	if err != nil {
		span.SetStatus(codes.Error, "Failed to dispatch task")
		span.RecordError(err)
		switch {
		case errors.Is(err, domain.ErrValidation):
			h.respondValidationError(w, span, err)
		case errors.Is(err, domain.ErrNoWorkersAvailable):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("error dispatching task", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	span.SetAttributes(attribute.String("task.id", report.TaskID))
	respondJSON(w, http.StatusOK, TaskResponse{OK: true, TaskReport: report})
}
