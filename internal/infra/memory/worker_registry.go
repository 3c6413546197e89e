// internal/infra/memory/worker_registry.go
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"task-dispatch/internal/domain"
	"task-dispatch/internal/metrics"
)

type registryEntry struct {
	worker domain.Worker
	seq    uint64 // first-insertion order, breaks RegisteredAt ties
}

// WorkerRegistry implements domain.WorkerRegistry with a mutex-guarded map.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[string]*registryEntry
	nextSeq uint64
	seeded  bool
	now     func() time.Time
}

// NewWorkerRegistry creates an empty registry.
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{
		workers: make(map[string]*registryEntry),
		now:     time.Now,
	}
}

// Upsert validates the endpoint, then adds or updates the worker.
func (r *WorkerRegistry) Upsert(ctx context.Context, id, label, endpoint string) (domain.Worker, error) {
	u, err := domain.ValidateEndpoint(endpoint)
	if err != nil {
		return domain.Worker{}, err
	}
	id = strings.TrimSpace(id)
	label = strings.TrimSpace(label)
	if label == "" {
		label = domain.DefaultWorkerLabel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id == "" {
		id = r.generateIDLocked(now)
	}
	w := r.putLocked(domain.Worker{
		ID:         id,
		Label:      label,
		Endpoint:   u,
		LastSeenAt: now,
		Source:     domain.WorkerSourceRegister,
	}, now)
	metrics.RegisteredWorkers.Set(float64(len(r.workers)))
	return w, nil
}

// BulkLoad inserts the startup seeds. Invalid seeds are skipped and reported
// in the returned error; the valid ones are still loaded.
func (r *WorkerRegistry) BulkLoad(ctx context.Context, seeds []domain.WorkerSeed) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seeded {
		return 0, domain.ErrAlreadySeeded
	}
	r.seeded = true

	now := r.now()
	loaded := 0
	var errs []error
	for i, seed := range seeds {
		u, err := domain.ValidateEndpoint(seed.Endpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("skipped worker seed %d (%q): %w", i+1, seed.ID, err))
			continue
		}
		id := strings.TrimSpace(seed.ID)
		if id == "" {
			id = fmt.Sprintf("env-%d", i+1)
		}
		label := strings.TrimSpace(seed.Label)
		if label == "" {
			label = id
		}
		r.putLocked(domain.Worker{
			ID:         id,
			Label:      label,
			Endpoint:   u,
			LastSeenAt: now,
			Source:     domain.WorkerSourceEnv,
		}, now)
		loaded++
	}
	metrics.RegisteredWorkers.Set(float64(len(r.workers)))
	return loaded, errors.Join(errs...)
}

// List returns copies of all workers ordered by registration time.
func (r *WorkerRegistry) List(ctx context.Context) ([]domain.Worker, error) {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.workers))
	for _, e := range r.workers {
		entries = append(entries, *e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b registryEntry) int {
		if c := a.worker.RegisteredAt.Compare(b.worker.RegisteredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]domain.Worker, len(entries))
	for i, e := range entries {
		out[i] = e.worker
	}
	return out, nil
}

// Touch sets LastSeenAt for a known worker and ignores unknown ids.
func (r *WorkerRegistry) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.workers[id]; ok {
		e.worker.LastSeenAt = at
	}
	return nil
}

// putLocked stores w, keeping RegisteredAt and insertion order of an existing entry.
func (r *WorkerRegistry) putLocked(w domain.Worker, now time.Time) domain.Worker {
	if existing, ok := r.workers[w.ID]; ok {
		w.RegisteredAt = existing.worker.RegisteredAt
		existing.worker = w
		return w
	}
	w.RegisteredAt = now
	r.nextSeq++
	r.workers[w.ID] = &registryEntry{worker: w, seq: r.nextSeq}
	return w
}

// generateIDLocked derives a time-based id and suffixes it until it is free.
func (r *WorkerRegistry) generateIDLocked(now time.Time) string {
	base := fmt.Sprintf("reg-%d", now.UnixMilli())
	id := base
	for n := 2; ; n++ {
		if _, taken := r.workers[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}
