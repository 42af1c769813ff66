package contacts

import (
	"context"
	"fmt"

	"wacrm/internal/config"
	"wacrm/internal/segment"
	"wacrm/pkg/circuitbreaker"
)

const groupBreakerName = "mongodb-contact-groups"

// CircuitBreakerGroupStore stops calling the group store while it keeps
// failing, so the membership fallback applies immediately.
type CircuitBreakerGroupStore struct {
	store segment.GroupStore
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerGroupStore(store segment.GroupStore, cfg config.CircuitBreakerConfig) *CircuitBreakerGroupStore {
	if !cfg.Enabled {
		return &CircuitBreakerGroupStore{store: store}
	}
	return &CircuitBreakerGroupStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.FromConfig(groupBreakerName, cfg)),
	}
}

func (s *CircuitBreakerGroupStore) FindActiveGroups(ctx context.Context, scope segment.Scope, refs []string) ([]segment.Group, error) {
	if s.cb == nil {
		return s.store.FindActiveGroups(ctx, scope, refs)
	}

	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.FindActiveGroups(ctx, scope, refs)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for %s: %w", groupBreakerName, err)
		}
		return nil, err
	}

	groups, ok := result.([]segment.Group)
	if !ok && result != nil {
		return nil, fmt.Errorf("group store returned invalid result type")
	}
	return groups, nil
}

func (s *CircuitBreakerGroupStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}
