package netfetch

import (
	"context"
	"time"
)

// Clock supplies the current time for freshness decisions.
type Clock interface {
	Now() time.Time
}

// Sleeper suspends the caller between retry attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock reads the wall clock. time.Now carries a monotonic reading, so
// age comparisons are unaffected by clock steps.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// SystemSleeper waits on a timer and returns early with ctx.Err() when ctx
// ends first.
type SystemSleeper struct{}

// Sleep implements Sleeper.
func (SystemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
