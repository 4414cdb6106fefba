package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalFirstAcquireWaits(t *testing.T) {
	const d = 60 * time.Millisecond
	lim := NewInterval(d)

	start := time.Now()
	require.NoError(t, lim.Acquire(context.Background()))
	first := time.Since(start)
	require.NoError(t, lim.Acquire(context.Background()))
	second := time.Since(start)

	assert.GreaterOrEqual(t, first, d-10*time.Millisecond)
	assert.GreaterOrEqual(t, second, 2*d-20*time.Millisecond)
}

func TestIntervalCancelledContext(t *testing.T) {
	lim := NewInterval(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, lim.Acquire(ctx))
}

func TestIntervalDeadlineShorterThanWait(t *testing.T) {
	lim := NewInterval(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, lim.Acquire(ctx))
}

func TestNonPositiveIntervalIsUnlimited(t *testing.T) {
	lim := NewInterval(0)
	assert.IsType(t, Unlimited{}, lim)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, lim.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFactoryBuildsIndependentLimiters(t *testing.T) {
	f := IntervalFactory(time.Second)
	a, b := f(), f()
	assert.NotSame(t, a, b)
}

func TestReleaseRestartsInterval(t *testing.T) {
	const d = 80 * time.Millisecond
	lim := NewInterval(d)

	require.NoError(t, lim.Acquire(context.Background()))
	// work that outlasts the interval
	time.Sleep(d + 40*time.Millisecond)
	lim.Release()

	start := time.Now()
	require.NoError(t, lim.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), d-10*time.Millisecond)
}

func TestAcquireWithoutReleaseKeepsRate(t *testing.T) {
	const d = 50 * time.Millisecond
	lim := NewInterval(d)

	require.NoError(t, lim.Acquire(context.Background()))
	time.Sleep(d + 20*time.Millisecond)

	start := time.Now()
	require.NoError(t, lim.Acquire(context.Background()))
	assert.Less(t, time.Since(start), d/2)
}

func TestUnlimitedRelease(t *testing.T) {
	var lim Limiter = Unlimited{}
	lim.Release()
	assert.NoError(t, lim.Acquire(context.Background()))
}
