package domain

import "context"

// ExecuteRequest is the body of POST {endpoint}/execute.
type ExecuteRequest struct {
	TaskID string `json:"taskId"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// ExecuteResponse is what a worker answers after executing its share of a task.
type ExecuteResponse struct {
	OK          bool     `json:"ok"`
	Worker      string   `json:"worker"`
	TaskID      string   `json:"taskId"`
	Created     int      `json:"created"`
	Folder      string   `json:"folder"`
	SampleFiles []string `json:"sampleFiles"`
	ElapsedMs   int64    `json:"elapsedMs"`
}

// RemoteResponse is a completed HTTP exchange with a worker. Payload is the
// decoded JSON body, or nil when the body was not valid JSON.
type RemoteResponse struct {
	StatusCode int
	Payload    any
}

// RemoteExecutor calls the execute endpoint of one worker. An error means the
// exchange never completed (connection refused, timeout, ...); any HTTP status
// is reported through RemoteResponse instead.
type RemoteExecutor interface {
	Execute(ctx context.Context, endpoint string, req ExecuteRequest) (*RemoteResponse, error)
}

// TaskExecutor performs a unit-of-work batch on the worker side.
type TaskExecutor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)
}
