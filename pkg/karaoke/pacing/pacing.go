// Package pacing spaces out calls to the hosted analysis services.
package pacing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call may go out, or ctx is done.
// Release marks the end of the work Acquire admitted; the next gap is measured from there.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// Factory builds a fresh Limiter. The engine makes one per scoring call.
type Factory func() Limiter

// Interval keeps at least d between the end of one admitted unit of work and
// the start of the next. It is a one-token bucket that Release empties again.
type Interval struct {
	mu  sync.Mutex
	d   time.Duration
	lim *rate.Limiter
}

// NewInterval returns a limiter spacing calls d apart. The bucket starts empty
// so the first Acquire also waits d. d <= 0 disables pacing.
func NewInterval(d time.Duration) Limiter {
	if d <= 0 {
		return Unlimited{}
	}
	return &Interval{d: d, lim: emptyBucket(d)}
}

func emptyBucket(d time.Duration) *rate.Limiter {
	lim := rate.NewLimiter(rate.Every(d), 1)
	lim.Allow()
	return lim
}

// IntervalFactory returns a Factory producing NewInterval(d) limiters.
func IntervalFactory(d time.Duration) Factory {
	return func() Limiter { return NewInterval(d) }
}

func (i *Interval) Acquire(ctx context.Context) error {
	i.mu.Lock()
	lim := i.lim
	i.mu.Unlock()
	return lim.Wait(ctx)
}

// Release restarts the interval, discarding any token refilled while the work ran.
func (i *Interval) Release() {
	i.mu.Lock()
	i.lim = emptyBucket(i.d)
	i.mu.Unlock()
}

// Unlimited never blocks, apart from honoring an already-cancelled context.
type Unlimited struct{}

func (Unlimited) Acquire(ctx context.Context) error {
	return ctx.Err()
}

func (Unlimited) Release() {}
