// internal/domain/dispatcher.go
package domain

import "context"

// Dispatcher splits a task across all registered workers and reports the outcome.
type Dispatcher interface {
	DispatchTask(ctx context.Context, req TaskRequest) (*TaskReport, error)
}
