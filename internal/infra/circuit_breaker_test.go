package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenFor: time.Hour})
	boom := errors.New("gateway down")

	for i := 0; i < 3; i++ {
		err := b.Do(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", b.State())

	// Open breaker fast-fails without invoking fn.
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenFor: time.Hour})
	boom := errors.New("timeout")

	require.Error(t, b.Do(func() error { return boom }))
	require.NoError(t, b.Do(func() error { return nil }))
	require.Error(t, b.Do(func() error { return boom }))

	// Streak was broken, so a single failure after a success must not trip.
	assert.Equal(t, "closed", b.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenFor: 10 * time.Millisecond})

	require.Error(t, b.Do(func() error { return errors.New("down") }))
	assert.Equal(t, "open", b.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "half-open", b.State())

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, "half-open", b.State())
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenFor: 10 * time.Millisecond})

	require.Error(t, b.Do(func() error { return errors.New("down") }))
	time.Sleep(20 * time.Millisecond)
	require.Error(t, b.Do(func() error { return errors.New("still down") }))
	assert.Equal(t, "open", b.State())
}
