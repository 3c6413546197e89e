// internal/worker/registry.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"task-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Registry handles the announcement of a worker in etcd.
type Registry struct {
	client        *clientv3.Client
	logger        *slog.Logger
	leaseID       clientv3.LeaseID
	key           string
	stopKeepAlive context.CancelFunc
}

// NewRegistry creates a new etcd worker registry.
func NewRegistry(client *clientv3.Client, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger.With("component", "etcd-registry"),
	}
}

// announcement builds the key and JSON value a worker puts in etcd.
func announcement(seed domain.WorkerSeed) (string, string, error) {
	if seed.ID == "" {
		return "", "", fmt.Errorf("%w: worker id is required", domain.ErrValidation)
	}
	if _, err := domain.ValidateEndpoint(seed.Endpoint); err != nil {
		return "", "", err
	}
	value, err := json.Marshal(seed)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode worker announcement: %w", err)
	}
	return domain.DiscoveryPrefix + seed.ID, string(value), nil
}

// Register puts the worker's announcement under a lease with the given TTL
// and keeps the lease alive until Deregister.
func (r *Registry) Register(ctx context.Context, seed domain.WorkerSeed, ttl time.Duration) error {
	key, value, err := announcement(seed)
	if err != nil {
		return err
	}
	r.key = key

	// 1. Create a new lease with a TTL.
	secs := int64(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	leaseResp, err := r.client.Grant(ctx, secs)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	// 2. Put the announcement with the lease.
	if _, err = r.client.Put(ctx, key, value, clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to put worker announcement: %w", err)
	}

	// 3. Keep the lease alive in the background.
	kaCtx, cancel := context.WithCancel(context.Background())
	r.stopKeepAlive = cancel
	keepAliveCh, err := r.client.KeepAlive(kaCtx, r.leaseID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start keep-alive: %w", err)
	}

	go func() {
		for {
			// A closed channel means the lease was revoked or has expired.
			ka, ok := <-keepAliveCh
			if !ok {
				r.logger.Warn("keep-alive channel closed, worker announcement may have expired")
				return
			}
			r.logger.Debug("lease keep-alive refreshed", "lease_id", ka.ID, "ttl", ka.TTL)
		}
	}()

	r.logger.Info("worker announced", "key", key, "value", value)
	return nil
}

// Deregister revokes the lease, which removes the announcement.
func (r *Registry) Deregister(ctx context.Context) error {
	r.logger.Info("withdrawing worker announcement", "key", r.key)
	if r.stopKeepAlive != nil {
		r.stopKeepAlive()
	}
	if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}
