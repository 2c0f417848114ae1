package storage

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const pruneJob = "cart_storage_prune"

// Pruner is implemented by backends without native expiry.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobObserver records pruning runs.
type JobObserver interface {
	ObserveRun(job string, duration time.Duration, affected int)
}

// RunPruner removes snapshots older than ttl every interval until ctx is done.
// Backends that expire keys themselves (redis) or keep nothing are skipped.
func RunPruner(ctx context.Context, backend Storage, ttl, interval time.Duration, jobs JobObserver, logg *logger.Logger) {
	pruner, ok := backend.(Pruner)
	if !ok || ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			removed, err := pruner.Prune(ctx, start.Add(-ttl))
			if err != nil {
				logg.Error(ctx, "cart storage prune failed", err)
				continue
			}
			if jobs != nil {
				jobs.ObserveRun(pruneJob, time.Since(start), int(removed))
			}
			if removed > 0 {
				logg.Info(logg.WithField(ctx, "removed", removed), "pruned stale cart snapshots")
			}
		}
	}
}
