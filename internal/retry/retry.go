// Package retry confirms the effect of asynchronous calls by bounded polling.
package retry

import (
	"context"
	"time"

	"github.com/go-errors/errors"
)

// ErrExhausted is returned when every check in the budget came back false.
var ErrExhausted = errors.New("retry budget exhausted")

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy is a fixed-count, fixed-delay polling schedule. The first check
// happens after one Interval; Retries further checks follow, each after the
// same Interval.
type Policy struct {
	Retries  int
	Interval time.Duration
	// Sleep defaults to a timer-based sleep honoring ctx.
	Sleep Sleeper
}

// Check reports whether the awaited condition holds. attempt starts at 0.
// A non-nil error aborts polling immediately.
type Check func(attempt int) (bool, error)

// Attempts returns the total number of checks the policy allows.
func (p Policy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Poll waits Interval and runs check until it returns true or the budget
// runs out.
func Poll(ctx context.Context, p Policy, check Check) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	attempts := p.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
		ok, err := check(attempt)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return errors.Errorf("%w after %d attempts", ErrExhausted, attempts)
}

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
