package study

import (
	"context"
	"log/slog"
	"time"
)

// HistoryRetention is how long session-start history is kept.
const HistoryRetention = 30 * 24 * time.Hour

// HistoryPruner deletes session-start history older than a cutoff.
type HistoryPruner interface {
	PruneStudySessions(ctx context.Context, olderThan time.Duration) (int64, error)
}

// EvictCallback is called for every session the sweeper evicts.
type EvictCallback func(key Key)

// StartSweeper runs a background goroutine that periodically evicts idle
// sessions and prunes old history. The returned channel is closed when the
// goroutine exits after ctx is done.
func StartSweeper(ctx context.Context, m *Manager, ttl, interval time.Duration, pruner HistoryPruner, onEvict EvictCallback) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, m, ttl, pruner, onEvict)
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, m *Manager, ttl time.Duration, pruner HistoryPruner, onEvict EvictCallback) {
	evicted := m.EvictIdle(ttl)
	if len(evicted) > 0 {
		slog.Info("Sweeper evicted idle sessions", "count", len(evicted))
	}
	for _, key := range evicted {
		if onEvict != nil {
			onEvict(key)
		}
	}

	if pruner == nil {
		return
	}
	if deleted, err := pruner.PruneStudySessions(ctx, HistoryRetention); err != nil {
		slog.Error("Sweeper failed to prune session history", "error", err)
	} else if deleted > 0 {
		slog.Info("Sweeper pruned session history", "count", deleted)
	}
}
