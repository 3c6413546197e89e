// internal/domain/task.go
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// TaskRequest is one client request to spread Count units of work across all workers.
type TaskRequest struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Validate trims the name and checks the request is dispatchable.
func (r *TaskRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: task name cannot be empty", ErrValidation)
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: task count must be greater than 0, got %d", ErrValidation, r.Count)
	}
	return nil
}

// Assignment pairs a worker with the number of units it should execute.
type Assignment struct {
	Worker Worker
	Count  int
}

// PlannedAssignment is the report view of an Assignment.
type PlannedAssignment struct {
	WorkerID      string `json:"workerId"`
	Label         string `json:"label"`
	AssignedCount int    `json:"assignedCount"`
}

// DispatchResult is the outcome of one call to one worker.
// Status is 0 when the call never completed. Error is set iff OK is false.
type DispatchResult struct {
	WorkerID      string `json:"workerId"`
	Label         string `json:"label"`
	Endpoint      string `json:"url"`
	OK            bool   `json:"ok"`
	Status        int    `json:"status"`
	ElapsedMs     int64  `json:"elapsedMs"`
	Result        any    `json:"result"`
	Error         string `json:"error"`
	AssignedCount int    `json:"assignedCount"`
}

// MarshalJSON writes an empty Error as null.
func (r DispatchResult) MarshalJSON() ([]byte, error) {
	type plain DispatchResult
	out := struct {
		plain
		Error *string `json:"error"`
	}{plain: plain(r)}
	if r.Error != "" {
		out.Error = &r.Error
	}
	return json.Marshal(out)
}

// TaskSummary holds the aggregate counters of a dispatch.
type TaskSummary struct {
	SuccessServers int   `json:"successServers"`
	FailedServers  int   `json:"failedServers"`
	CreatedTotal   int   `json:"createdTotal"`
	TotalElapsedMs int64 `json:"totalElapsedMs"`
}

// TaskReport is everything known about a finished dispatch.
type TaskReport struct {
	TaskID           string              `json:"taskId"`
	Name             string              `json:"name"`
	TotalCount       int                 `json:"totalCount"`
	AvailableServers int                 `json:"availableServers"`
	Assignments      []PlannedAssignment `json:"perServerAssigned"`
	PerWorker        []DispatchResult    `json:"perWorker"`
	Final            TaskSummary         `json:"final"`
}

// CreatedCount reads the numeric "created" field of a worker payload.
// Anything that is not an object with a non-negative numeric created field
// that fits in an int counts as 0.
func CreatedCount(payload any) int {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0
	}
	switch v := m["created"].(type) {
	case float64:
		return createdFromFloat(v)
	case int:
		return max(v, 0)
	case int64:
		if v < 0 || v > math.MaxInt {
			return 0
		}
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			if n < 0 || n > math.MaxInt {
				return 0
			}
			return int(n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return createdFromFloat(f)
	default:
		return 0
	}
}

func createdFromFloat(f float64) int {
	// float64(math.MaxInt) rounds up to 2^63, so the bound is exclusive.
	if math.IsNaN(f) || f < 0 || f >= float64(math.MaxInt) {
		return 0
	}
	return int(f)
}

// PayloadError reads a non-empty string "error" field of a worker payload.
func PayloadError(payload any) (string, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := m["error"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
