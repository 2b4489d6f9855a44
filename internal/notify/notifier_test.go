package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// scriptedSender returns its scripted errors in order, then succeeds.
type scriptedSender struct {
	errs  []error
	calls int
	texts []string
}

func (s *scriptedSender) SendMessage(_ context.Context, text string, _ bool) error {
	s.texts = append(s.texts, text)
	s.calls++
	if s.calls <= len(s.errs) {
		return s.errs[s.calls-1]
	}
	return nil
}

// newTestNotifier wires a notifier with recorded, instant sleeps and a
// fake clock driving the admission window.
func newTestNotifier(sender Sender, windowLimit int) (*Notifier, *fakeTime) {
	ft := &fakeTime{t: time.Unix(1000, 0)}

	n := NewNotifier(sender, testLogger())
	n.sleep = ft.sleep
	n.window = newSendWindow(time.Second, windowLimit)
	n.window.now = ft.now
	n.window.sleep = ft.sleep
	return n, ft
}

// fakeTime is an injected clock whose sleep advances time instead of
// waiting.
type fakeTime struct {
	t      time.Time
	sleeps []time.Duration
}

func (f *fakeTime) now() time.Time {
	return f.t
}

func (f *fakeTime) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	f.t = f.t.Add(d)
	return nil
}

func TestNotifier_SendSucceedsFirstTry(t *testing.T) {
	sender := &scriptedSender{}
	n, ft := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
	assert.Empty(t, ft.sleeps)
}

func TestNotifier_RetriesTransientWithBackoff(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&Transient{Err: errors.New("timeout")},
		&Transient{Err: errors.New("timeout")},
	}}
	n, ft := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, 3, sender.calls)
	// Backoff delays observed in increasing order: 1s then 2s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, ft.sleeps)
}

func TestNotifier_TransientBudgetExhausts(t *testing.T) {
	cause := errors.New("network unreachable")
	sender := &scriptedSender{errs: []error{
		&Transient{Err: cause},
		&Transient{Err: cause},
		&Transient{Err: cause},
	}}
	n, ft := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, ft.sleeps)
}

func TestNotifier_HonorsEndpointThrottle(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&Throttled{RetryAfter: 7 * time.Second},
	}}
	n, ft := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, []time.Duration{7 * time.Second}, ft.sleeps)
}

func TestNotifier_ThrottleDoesNotConsumeRetryBudget(t *testing.T) {
	// Three throttles would exceed the transient budget if they counted;
	// they must not.
	sender := &scriptedSender{errs: []error{
		&Throttled{RetryAfter: time.Second},
		&Throttled{RetryAfter: time.Second},
		&Throttled{RetryAfter: time.Second},
		&Transient{Err: errors.New("blip")},
	}}
	n, _ := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.NoError(t, err)
	assert.Equal(t, 5, sender.calls)
}

func TestNotifier_RejectionSurfacesImmediately(t *testing.T) {
	rejection := errors.New("bad request: message too long")
	sender := &scriptedSender{errs: []error{rejection}}
	n, ft := newTestNotifier(sender, 20)

	err := n.Send(context.Background(), "hello", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, rejection)
	assert.Equal(t, 1, sender.calls)
	assert.Empty(t, ft.sleeps)
}

func TestNotifier_CancelledDuringBackoff(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&Transient{Err: errors.New("timeout")},
	}}
	n, _ := newTestNotifier(sender, 20)

	ctx, cancel := context.WithCancel(context.Background())
	n.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := n.Send(ctx, "hello", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sender.calls)
}

func TestSendWindow_AdmitsUpToCap(t *testing.T) {
	sender := &scriptedSender{}
	n, ft := newTestNotifier(sender, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, n.Send(context.Background(), "x", false))
	}
	assert.Empty(t, ft.sleeps)
	assert.Equal(t, 3, sender.calls)
}

func TestSendWindow_BlocksWhenFull(t *testing.T) {
	sender := &scriptedSender{}
	n, ft := newTestNotifier(sender, 3)

	for i := 0; i < 4; i++ {
		require.NoError(t, n.Send(context.Background(), "x", false))
	}

	// The fourth attempt had to wait for the oldest entry to leave the
	// one second window.
	require.Len(t, ft.sleeps, 1)
	assert.Equal(t, time.Second, ft.sleeps[0])
	assert.Equal(t, 4, sender.calls)
}

func TestSendWindow_PrunesOldEntries(t *testing.T) {
	w := newSendWindow(time.Second, 2)
	ft := &fakeTime{t: time.Unix(1000, 0)}
	w.now = ft.now
	w.sleep = ft.sleep

	require.NoError(t, w.admit(context.Background()))
	ft.t = ft.t.Add(2 * time.Second)
	require.NoError(t, w.admit(context.Background()))
	require.NoError(t, w.admit(context.Background()))

	// Entries older than the window were pruned, so only the two recent
	// admissions remain and none of the calls blocked.
	assert.Empty(t, ft.sleeps)
	assert.Len(t, w.stamps, 2)
}

func TestSendWindow_NeverExceedsCap(t *testing.T) {
	w := newSendWindow(time.Second, 5)
	ft := &fakeTime{t: time.Unix(1000, 0)}
	w.now = ft.now
	w.sleep = ft.sleep

	for i := 0; i < 20; i++ {
		require.NoError(t, w.admit(context.Background()))
		assert.LessOrEqual(t, len(w.stamps), 5)
	}
}

func TestNotifier_FailedAttemptStillConsumesWindowBudget(t *testing.T) {
	rejection := errors.New("rejected")
	sender := &scriptedSender{errs: []error{rejection}}
	n, _ := newTestNotifier(sender, 3)

	_ = n.Send(context.Background(), "x", false)
	assert.Len(t, n.window.stamps, 1)
}
