package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	boom := errors.New("boom")

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: 10 * time.Second}

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Do(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDo_InvalidMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 0}
	err := p.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy(nil)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
}
