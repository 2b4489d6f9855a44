package watch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentScans caps the number of directory scans running at once,
// regardless of how many watchers are configured.
const maxConcurrentScans = 5

// Set runs a fixed collection of watchers once per tick and aggregates
// their changes. A failing watcher is logged and contributes no changes;
// it never aborts the tick for the others.
type Set struct {
	watchers []*DirWatcher
	logger   *slog.Logger
}

// NewSet creates a coordinator over the given watchers.
func NewSet(watchers []*DirWatcher, logger *slog.Logger) *Set {
	return &Set{
		watchers: watchers,
		logger:   logger,
	}
}

// Len returns the number of watchers in the set.
func (s *Set) Len() int {
	return len(s.watchers)
}

// CheckAll checks every watcher with bounded concurrency and returns the
// aggregated changes tagged with their source root.
//
// This is a full join: every scan has completed (or failed) before CheckAll
// returns. Callers must not invoke CheckAll concurrently, so each watcher
// sees at most one Check in flight.
func (s *Set) CheckAll(ctx context.Context) []SetChange {
	limit := len(s.watchers)
	if limit > maxConcurrentScans {
		limit = maxConcurrentScans
	}

	var (
		mu      sync.Mutex
		changes []SetChange
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, w := range s.watchers {
		w := w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}

			found, err := w.Check()
			if err != nil {
				// Recoverable: treat as zero changes from this watcher.
				s.logger.Error("watcher check failed", "root", w.Root(), "error", err)
				return nil
			}

			if len(found) == 0 {
				return nil
			}

			mu.Lock()
			for _, c := range found {
				changes = append(changes, SetChange{Root: w.Root(), Change: c})
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait is just the join point.
	_ = g.Wait()

	return changes
}
