package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	assert.Zero(t, Backoff(time.Second, 0))
	assert.Zero(t, Backoff(0, 3))

	for attempt := 1; attempt <= 4; attempt++ {
		nominal := time.Second * time.Duration(1<<uint(attempt))
		got := Backoff(time.Second, attempt)
		assert.GreaterOrEqual(t, got, nominal-nominal/4, "attempt %d", attempt)
		assert.LessOrEqual(t, got, nominal+nominal/4, "attempt %d", attempt)
	}

	capped := Backoff(time.Second, 60)
	assert.LessOrEqual(t, capped, MaxBackoff+MaxBackoff/4)
	assert.GreaterOrEqual(t, capped, MaxBackoff-MaxBackoff/4)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	sentinel := errors.New("still down")
	err := Do(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("bad request")
	err := Do(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
