package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_PassesResultThrough(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-pass"))

	got, err := Execute(context.Background(), w, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"maxTemperature": 42.0}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42.0, got["maxTemperature"])
	assert.Equal(t, gobreaker.StateClosed, w.State())
}

func TestExecute_OpensAfterFailureRatio(t *testing.T) {
	cfg := DefaultConfig("test-open")
	cfg.MinRequests = 2
	cfg.Timeout = time.Minute
	w := NewWrapper(cfg)

	failing := func(ctx context.Context) (int, error) { return 0, errors.New("store down") }
	for i := 0; i < 2; i++ {
		_, err := Execute(context.Background(), w, failing)
		require.Error(t, err)
	}

	assert.True(t, w.IsOpen())
	_, err := Execute(context.Background(), w, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_IgnoresSuccessfulErrors(t *testing.T) {
	cfg := DefaultConfig("test-ignore")
	cfg.MinRequests = 1
	notFound := errors.New("not found")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, notFound) }
	w := NewWrapper(cfg)

	for i := 0; i < 3; i++ {
		_, err := Execute(context.Background(), w, func(ctx context.Context) (int, error) { return 0, notFound })
		assert.ErrorIs(t, err, notFound)
	}
	assert.False(t, w.IsOpen())
}

func TestExecute_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-cancel"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Execute(ctx, w, func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
