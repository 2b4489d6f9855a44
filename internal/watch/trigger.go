package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger turns raw filesystem events into a debounced wake signal so the
// monitor loop can tick early instead of waiting out the full interval.
//
// The polling scan stays authoritative: the trigger never produces changes
// itself, it only shortens the wait before the next snapshot. Missed or
// duplicated fsnotify events are therefore harmless.
type Trigger struct {
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
}

// NewTrigger creates a trigger watching the given roots recursively.
func NewTrigger(roots []string, debounce time.Duration, logger *slog.Logger) (*Trigger, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	t := &Trigger{
		logger:   logger,
		watcher:  fw,
		debounce: debounce,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	for _, root := range roots {
		if err := t.watchTree(root); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}

	return t, nil
}

// watchTree registers root and every subdirectory below it.
func (t *Trigger) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			t.logger.Warn("trigger cannot access path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := t.watcher.Add(path); err != nil {
			t.logger.Warn("trigger cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Start consumes filesystem events until the context is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case event, ok := <-t.watcher.Events:
				if !ok {
					return
				}
				t.handle(event)
			case err, ok := <-t.watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("trigger event error", "error", err)
			}
		}
	}()
}

func (t *Trigger) handle(event fsnotify.Event) {
	// New directories need their own watch so deeper drops still wake us.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := t.watchTree(event.Name); err != nil {
				t.logger.Warn("trigger cannot watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Coalesce bursts: one wake per settled burst of events.
	if t.timer != nil {
		t.timer.Reset(t.debounce)
		return
	}
	t.timer = time.AfterFunc(t.debounce, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()

		select {
		case t.wake <- struct{}{}:
		default:
		}
	})
}

// Wake returns the channel that fires after a settled burst of events.
func (t *Trigger) Wake() <-chan struct{} {
	return t.wake
}

// Stop releases the underlying watcher and pending timers.
func (t *Trigger) Stop() error {
	close(t.done)

	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	err := t.watcher.Close()
	t.wg.Wait()
	return err
}
