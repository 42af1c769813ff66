package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wacrm/internal/config"
)

func TestCircuitBreakerRepository_Disabled(t *testing.T) {
	inner := newMemoryEntries()
	repo := NewCircuitBreakerRepository(inner, config.CircuitBreakerConfig{})

	first, err := repo.SetNX(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.SetNX(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	assert.Equal(t, "disabled", repo.State())
	assert.False(t, repo.IsOpen())
}

func TestCircuitBreakerRepository_OpensAfterFailures(t *testing.T) {
	inner := newMemoryEntries()
	inner.err = errors.New("redis: connection refused")
	repo := NewCircuitBreakerRepository(inner, config.CircuitBreakerConfig{
		Enabled:      true,
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Minute,
	})

	for i := 0; i < 3; i++ {
		_, err := repo.SetNX(context.Background(), "k", 1, time.Minute)
		require.Error(t, err)
	}
	assert.True(t, repo.IsOpen())

	_, err := repo.SetNX(context.Background(), "k", 1, time.Minute)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreakerRepository_ReleaseBypassesBreaker(t *testing.T) {
	inner := newMemoryEntries()
	repo := NewCircuitBreakerRepository(inner, config.CircuitBreakerConfig{Enabled: true, MinRequests: 1, FailureRatio: 0.1})

	first, err := repo.SetNX(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, repo.Release(context.Background(), "k"))
	assert.Equal(t, []string{"k"}, inner.released)

	first, err = repo.SetNX(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}
