package action

import (
	"context"
	"time"
)

// Clock waits on behalf of actions, so tests can replace wall-clock delays.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning the context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps using timers.
type RealClock struct{}

// Sleep waits for d or ctx.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
