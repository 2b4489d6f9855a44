// Package monitor drives the polling cadence: scan all watchers, compose a
// summary, notify, sleep, repeat. The loop survives every recoverable
// failure and exits only on explicit cancellation.
package monitor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dropwatch/dropwatch/internal/notify"
	"github.com/dropwatch/dropwatch/internal/watch"
)

// State is the lifecycle state of the monitor loop.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateErrorRecovery
	StateShuttingDown
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateErrorRecovery:
		return "error_recovery"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	defaultErrorDelay     = 5 * time.Second
	shutdownNoticeTimeout = 10 * time.Second
)

// Checker runs one round of change detection across all watchers.
type Checker interface {
	CheckAll(ctx context.Context) []watch.SetChange
	Len() int
}

// Sender delivers one composed message with the full outbound policy
// (rate limiting, retries) already applied.
type Sender interface {
	Send(ctx context.Context, text string, markdown bool) error
}

// Config holds the loop settings.
type Config struct {
	// Name is the bot name used in every lifecycle message.
	Name string

	// Interval is the pause between ticks.
	Interval time.Duration

	// ErrorDelay is the pause before resuming after a recoverable error.
	// Zero means the 5s default.
	ErrorDelay time.Duration

	// Wake optionally cuts the interval wait short; nil disables early
	// ticks.
	Wake <-chan struct{}
}

// Monitor ties the watcher set, composer, and notifier into the main loop.
type Monitor struct {
	cfg     Config
	checker Checker
	sender  Sender
	logger  *slog.Logger
	state   atomic.Int32
}

// New creates a monitor loop.
func New(cfg Config, checker Checker, sender Sender, logger *slog.Logger) *Monitor {
	if cfg.ErrorDelay == 0 {
		cfg.ErrorDelay = defaultErrorDelay
	}
	return &Monitor{
		cfg:     cfg,
		checker: checker,
		sender:  sender,
		logger:  logger,
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

func (m *Monitor) setState(s State) {
	m.state.Store(int32(s))
	m.logger.Debug("monitor state", "state", s.String())
}

// Run executes the loop until ctx is cancelled, then returns nil after a
// best-effort shutdown notice. Recoverable errors never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.setState(StateStarting)

	startup := notify.ComposeStartup(m.cfg.Name, m.checker.Len(), m.cfg.Interval)
	if err := m.sender.Send(ctx, startup, true); err != nil {
		if ctx.Err() != nil {
			return m.shutdown()
		}
		// Best-effort: an unreachable channel at boot is not fatal.
		m.logger.Error("failed to send startup notice", "error", err)
	}

	m.setState(StateRunning)

	for {
		if err := m.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return m.shutdown()
			}
			m.recover(ctx, err)
			if ctx.Err() != nil {
				return m.shutdown()
			}
			m.setState(StateRunning)
			continue
		}

		select {
		case <-ctx.Done():
			return m.shutdown()
		case <-time.After(m.cfg.Interval):
		case <-m.cfg.Wake:
			m.logger.Debug("early tick requested by filesystem event")
		}
	}
}

// tick runs one scan-compose-notify round.
func (m *Monitor) tick(ctx context.Context) error {
	changes := m.checker.CheckAll(ctx)

	text, ok := notify.ComposeChanges(m.cfg.Name, changes)
	if !ok {
		return nil
	}

	m.logger.Info("reporting changes", "count", len(changes))
	return m.sender.Send(ctx, text, true)
}

// recover handles a recoverable loop error: notify the operator if
// possible, then pause briefly before resuming.
func (m *Monitor) recover(ctx context.Context, cause error) {
	m.setState(StateErrorRecovery)
	m.logger.Error("recoverable monitor error", "error", cause)

	if err := m.sender.Send(ctx, notify.ComposeError(cause), true); err != nil {
		// The notice itself failing is only worth a log line.
		m.logger.Error("failed to send error notice", "error", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(m.cfg.ErrorDelay):
	}
}

// shutdown sends the goodbye notice on a fresh context, since the loop's
// own context is already cancelled by the time we get here.
func (m *Monitor) shutdown() error {
	m.setState(StateShuttingDown)
	m.logger.Info("monitor shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownNoticeTimeout)
	defer cancel()

	if err := m.sender.Send(ctx, notify.ComposeShutdown(m.cfg.Name), true); err != nil {
		m.logger.Error("failed to send shutdown notice", "error", err)
	}

	m.setState(StateStopped)
	return nil
}
