package http

import (
	"task-dispatch/internal/domain"
)

// RegisterWorkerRequest is the body of POST /api/workers/register.
type RegisterWorkerRequest struct {
	URL   string `json:"url" validate:"required"`
	Label string `json:"label"`
	ID    string `json:"id"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gt=0"`
}

// ToDomain converts the DTO to a domain.TaskRequest.
func (r *CreateTaskRequest) ToDomain() domain.TaskRequest {
	return domain.TaskRequest{Name: r.Name, Count: r.Count}
}

// WorkerResponse is the wire view of a registered worker. Timestamps are
// milliseconds since the Unix epoch.
type WorkerResponse struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	URL          string `json:"url"`
	RegisteredAt int64  `json:"registeredAt"`
	LastSeenAt   int64  `json:"lastSeenAt"`
	Source       string `json:"source"`
}

// NewWorkerResponse converts a domain.Worker to its wire view.
func NewWorkerResponse(w domain.Worker) WorkerResponse {
	return WorkerResponse{
		ID:           w.ID,
		Label:        w.Label,
		URL:          w.Endpoint,
		RegisteredAt: w.RegisteredAt.UnixMilli(),
		LastSeenAt:   w.LastSeenAt.UnixMilli(),
		Source:       string(w.Source),
	}
}

// TaskResponse is a TaskReport with the ok flag in front.
type TaskResponse struct {
	OK bool `json:"ok"`
	*domain.TaskReport
}
