// internal/domain/worker.go
package domain

import (
	"fmt"
	"strings"
	"time"
)

// WorkerSource records how a worker entered the registry. Informational only.
type WorkerSource string

const (
	WorkerSourceEnv      WorkerSource = "env"
	WorkerSourceRegister WorkerSource = "register"
)

// DefaultWorkerLabel is used when a registration carries no label.
const DefaultWorkerLabel = "worker"

// Worker is a registered remote executor.
type Worker struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Endpoint     string       `json:"url"`
	RegisteredAt time.Time    `json:"registeredAt"`
	LastSeenAt   time.Time    `json:"lastSeenAt"`
	Source       WorkerSource `json:"source"`
}

// WorkerSeed describes a worker loaded from process configuration at startup.
type WorkerSeed struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Endpoint string `json:"url"`
}

// NormalizeEndpoint trims whitespace and strips every trailing slash.
func NormalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// ValidateEndpoint normalizes endpoint and checks that it is an http(s) base URL.
func ValidateEndpoint(endpoint string) (string, error) {
	u := NormalizeEndpoint(endpoint)
	if u == "" {
		return "", fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "", fmt.Errorf("%w: endpoint %q must start with http:// or https://", ErrValidation, u)
	}
	return u, nil
}
