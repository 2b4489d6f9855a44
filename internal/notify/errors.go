package notify

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is wrapped into the error returned when the transient
// retry budget runs out.
var ErrRetriesExhausted = errors.New("notify: retries exhausted")

// Throttled reports that the endpoint explicitly asked for a pause before
// the same send is attempted again. Throttle waits do not consume the
// transient retry budget.
type Throttled struct {
	RetryAfter time.Duration
}

func (e *Throttled) Error() string {
	return fmt.Sprintf("notify: throttled by endpoint, retry after %s", e.RetryAfter)
}

// Transient marks a failure expected to succeed on retry without
// intervention: timeouts, temporary network loss, server-side 5xx.
type Transient struct {
	Err error
}

func (e *Transient) Error() string {
	return fmt.Sprintf("notify: transient send failure: %v", e.Err)
}

func (e *Transient) Unwrap() error {
	return e.Err
}
