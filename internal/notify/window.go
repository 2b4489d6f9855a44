package notify

import (
	"context"
	"sync"
	"time"
)

// sendWindow is a sliding-window admission gate over send attempts.
//
// At any instant the retained timestamps all lie within one window of now;
// admission is granted only while fewer than limit attempts sit in the
// window, otherwise the caller blocks until the oldest attempt ages out.
// The attempt, not its outcome, consumes budget: the timestamp is recorded
// on admission so failed sends still count against the window.
type sendWindow struct {
	window time.Duration
	limit  int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu     sync.Mutex
	stamps []time.Time
}

func newSendWindow(window time.Duration, limit int) *sendWindow {
	return &sendWindow{
		window: window,
		limit:  limit,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// admit blocks until the attempt fits in the window, then records it.
func (w *sendWindow) admit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		now := w.now()
		w.prune(now)

		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			return nil
		}

		wait := w.stamps[0].Add(w.window).Sub(now)

		// Release the gate while waiting so other admissions can prune,
		// then recheck from scratch.
		w.mu.Unlock()
		err := w.sleep(ctx, wait)
		w.mu.Lock()
		if err != nil {
			return err
		}
	}
}

// prune drops attempts that have left the window. Caller holds mu.
func (w *sendWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
