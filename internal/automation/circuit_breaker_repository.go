package automation

import (
	"context"
	"fmt"
	"time"

	"wacrm/internal/config"
	"wacrm/pkg/circuitbreaker"
)

const entryBreakerName = "redis-segment-entries"

type CircuitBreakerRepository struct {
	repo EntryRepository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo EntryRepository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{repo: repo}
	}
	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(circuitbreaker.FromConfig(entryBreakerName, cfg)),
	}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if r.cb == nil {
		return r.repo.SetNX(ctx, key, value, ttl)
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for %s: %w", entryBreakerName, err)
		}
		return false, err
	}

	success, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("repository returned invalid result type")
	}
	return success, nil
}

// Release bypasses the breaker; it only runs right after a successful SetNX.
func (r *CircuitBreakerRepository) Release(ctx context.Context, key string) error {
	return r.repo.Release(ctx, key)
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	if r.cb == nil {
		return false
	}
	return r.cb.IsOpen()
}
