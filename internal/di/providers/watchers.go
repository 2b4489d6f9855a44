package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/dropwatch/dropwatch/internal/config"
	"github.com/dropwatch/dropwatch/internal/logger"
	"github.com/dropwatch/dropwatch/internal/watch"
)

const triggerDebounce = 500 * time.Millisecond

// ProvideWatcherSet constructs every configured watcher and the coordinator
// over them. Invalid specs (negative recursion limit, missing root) fail
// bootstrap here rather than at scan time.
func ProvideWatcherSet(i do.Injector) (*watch.Set, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	watchers := make([]*watch.DirWatcher, 0, len(cfg.Watches))
	for _, wc := range cfg.Watches {
		w, err := watch.NewDirWatcher(watch.Spec{
			Root:           wc.Path,
			Extensions:     wc.Extensions,
			RecursionLimit: wc.RecursionLimit,
		}, log.Logger)
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, w)
	}

	return watch.NewSet(watchers, log.Logger), nil
}

// TriggerHandle wraps the optional fsnotify trigger with shutdown support.
// A nil Trigger means event wake-ups are disabled.
type TriggerHandle struct {
	*watch.Trigger
	cancel context.CancelFunc
}

// Wake returns the wake channel, or nil when the trigger is disabled. A nil
// channel never fires, which is exactly what the monitor wait wants.
func (h *TriggerHandle) Wake() <-chan struct{} {
	if h.Trigger == nil {
		return nil
	}
	return h.Trigger.Wake()
}

// Shutdown implements do.Shutdownable.
func (h *TriggerHandle) Shutdown() error {
	if h.Trigger == nil {
		return nil
	}
	h.cancel()
	return h.Trigger.Stop()
}

// ProvideTrigger provides the filesystem event trigger when enabled.
func ProvideTrigger(i do.Injector) (*TriggerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Monitor.WakeOnEvent {
		return &TriggerHandle{}, nil
	}

	roots := make([]string, 0, len(cfg.Watches))
	for _, wc := range cfg.Watches {
		roots = append(roots, wc.Path)
	}

	trigger, err := watch.NewTrigger(roots, triggerDebounce, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	trigger.Start(ctx)

	log.Info("filesystem event trigger enabled", "roots", len(roots))

	return &TriggerHandle{Trigger: trigger, cancel: cancel}, nil
}
