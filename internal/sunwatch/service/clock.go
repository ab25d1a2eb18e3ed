package service

import (
	"context"
	"time"
)

// Clock supplies the current time.  Abstracted so tests can drive the
// monitor with synthetic time.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks until an absolute instant.  SleepUntil returns nil when the
// instant is reached (or already past) and ctx.Err() when cancelled first.
type Sleeper interface {
	SleepUntil(ctx context.Context, t time.Time) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type timerSleeper struct{}

func (timerSleeper) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
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

// TimerSleeper returns a Sleeper backed by a real timer.
func TimerSleeper() Sleeper { return timerSleeper{} }
