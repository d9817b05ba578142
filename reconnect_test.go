package mjpegcapture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastReconnect(maxRetries int) ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    maxRetries,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 8 * time.Millisecond,
	}
}

func TestRunWithReconnect_RetriesUntilCleanCompletion(t *testing.T) {
	attempts := 0
	run := func(ctx context.Context) (uint64, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("connect refused")
		}
		return 1, nil
	}

	err := RunWithReconnect(context.Background(), run, fastReconnect(5))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRunWithReconnect_ExhaustsBudget(t *testing.T) {
	attempts := 0
	run := func(ctx context.Context) (uint64, error) {
		attempts++
		return 0, errors.New("dead endpoint")
	}

	err := RunWithReconnect(context.Background(), run, fastReconnect(2))
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestRunWithReconnect_FramesResetBudget(t *testing.T) {
	// Every session fails, but each delivered frames: the budget keeps
	// resetting, so far more sessions run than MaxRetries alone allows.
	attempts := 0
	run := func(ctx context.Context) (uint64, error) {
		attempts++
		if attempts >= 8 {
			return 5, nil
		}
		return 5, errors.New("stream dropped")
	}

	err := RunWithReconnect(context.Background(), run, fastReconnect(2))
	require.NoError(t, err)
	assert.Equal(t, 8, attempts)
}

func TestRunWithReconnect_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	run := func(ctx context.Context) (uint64, error) {
		return 0, errors.New("refused")
	}

	cfg := ReconnectConfig{
		MaxRetries:    10,
		RetryDelay:    time.Hour, // parked in backoff until cancelled
		MaxRetryDelay: time.Hour,
	}

	done := make(chan error, 1)
	go func() { done <- RunWithReconnect(ctx, run, cfg) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect loop did not observe cancellation")
	}
}

func TestCalculateBackoff_ExponentialWithCap(t *testing.T) {
	cfg := DefaultReconnectConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateBackoff(tt.attempt, cfg), "attempt %d", tt.attempt)
	}
}
