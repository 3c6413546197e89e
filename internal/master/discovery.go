// internal/master/discovery.go
package master

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"task-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// WorkerDiscovery feeds workers announced in etcd into the registry.
type WorkerDiscovery struct {
	client   *clientv3.Client
	registry domain.WorkerRegistry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewWorkerDiscovery creates a new discovery service.
func NewWorkerDiscovery(client *clientv3.Client, registry domain.WorkerRegistry, timeout time.Duration, logger *slog.Logger) *WorkerDiscovery {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WorkerDiscovery{
		client:   client,
		registry: registry,
		timeout:  timeout,
		logger:   logger.With("component", "worker-discovery"),
	}
}

// WatchWorkers loads the workers already announced, then follows changes until
// ctx is done. This is a blocking call and should be run in a goroutine.
func (d *WorkerDiscovery) WatchWorkers(ctx context.Context) {
	d.logger.Info("starting to watch for workers", "prefix", domain.DiscoveryPrefix)

	// 1. Initial load; the watch resumes right after the revision we read.
	rev, err := d.loadInitialWorkers(ctx)
	if err != nil {
		d.logger.Error("failed to perform initial worker load", "error", err)
	}

	// 2. Watch for future changes.
	opts := []clientv3.OpOption{clientv3.WithPrefix()}
	if rev > 0 {
		opts = append(opts, clientv3.WithRev(rev+1))
	}
	for watchResp := range d.client.Watch(ctx, domain.DiscoveryPrefix, opts...) {
		if err := watchResp.Err(); err != nil {
			d.logger.Error("worker watch failed", "error", err)
			continue
		}
		for _, event := range watchResp.Events {
			key := string(event.Kv.Key)
			switch event.Type {
			case clientv3.EventTypePut:
				if err := d.applyPut(ctx, key, event.Kv.Value); err != nil {
					d.logger.Warn("ignoring worker announcement", "key", key, "error", err)
				}
			case clientv3.EventTypeDelete:
				// The registry has no removal; the worker stays listed and
				// its calls will fail until it comes back.
				d.logger.Info("worker announcement withdrawn", "key", key)
			}
		}
	}
	d.logger.Info("stopped watching for workers")
}

func (d *WorkerDiscovery) loadInitialWorkers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.Get(ctx, domain.DiscoveryPrefix, clientv3.WithPrefix())
	if err != nil {
		return 0, err
	}
	for _, kv := range resp.Kvs {
		if err := d.applyPut(ctx, string(kv.Key), kv.Value); err != nil {
			d.logger.Warn("ignoring worker announcement", "key", string(kv.Key), "error", err)
		}
	}
	return resp.Header.Revision, nil
}

// applyPut upserts the announced worker. The id falls back to the key suffix.
func (d *WorkerDiscovery) applyPut(ctx context.Context, key string, value []byte) error {
	var seed domain.WorkerSeed
	if err := json.Unmarshal(value, &seed); err != nil {
		return fmt.Errorf("failed to decode worker announcement: %w", err)
	}
	if strings.TrimSpace(seed.ID) == "" {
		seed.ID = strings.TrimPrefix(key, domain.DiscoveryPrefix)
	}
	w, err := d.registry.Upsert(ctx, seed.ID, seed.Label, seed.Endpoint)
	if err != nil {
		return err
	}
	d.logger.Info("worker discovered", "worker_id", w.ID, "url", w.Endpoint)
	return nil
}
