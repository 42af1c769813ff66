package contacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wacrm/internal/config"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
)

type countingGroups struct {
	calls  int
	groups []segment.Group
	err    error
}

func (c *countingGroups) FindActiveGroups(context.Context, segment.Scope, []string) ([]segment.Group, error) {
	c.calls++
	return c.groups, c.err
}

func TestCircuitBreakerGroupStore_Disabled(t *testing.T) {
	inner := &countingGroups{groups: []segment.Group{{ID: "g1", MemberIDs: []string{"c1"}}}}
	store := NewCircuitBreakerGroupStore(inner, config.CircuitBreakerConfig{Enabled: false})

	groups, err := store.FindActiveGroups(context.Background(), segment.Scope{OwnerID: "o"}, []string{"g1"})
	require.NoError(t, err)
	assert.Equal(t, inner.groups, groups)
	assert.Equal(t, "disabled", store.State())
}

func TestCircuitBreakerGroupStore_Opens(t *testing.T) {
	inner := &countingGroups{err: errors.New("no reachable servers")}
	store := NewCircuitBreakerGroupStore(inner, config.CircuitBreakerConfig{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := store.FindActiveGroups(context.Background(), segment.Scope{OwnerID: "o"}, []string{"g1"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", store.State())

	_, err := store.FindActiveGroups(context.Background(), segment.Scope{OwnerID: "o"}, []string{"g1"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

func TestCircuitBreakerGroupStore_FeedsMembershipFallback(t *testing.T) {
	inner := &countingGroups{err: errors.New("no reachable servers")}
	store := NewCircuitBreakerGroupStore(inner, config.CircuitBreakerConfig{Enabled: true, MinRequests: 1, FailureRatio: 0.1})
	resolver := segment.NewMembershipResolver(store, config.MembershipConfig{OnError: "deny"}, logger.NopLogger())

	for i := 0; i < 3; i++ {
		m, err := resolver.Resolve(context.Background(), segment.Scope{OwnerID: "o"}, []string{"g1"})
		require.NoError(t, err)
		assert.True(t, m.Degraded)
		p, ok := m.Predicate()
		require.True(t, ok)
		assert.Equal(t, segment.KindNone, p.Kind)
	}
	assert.Equal(t, 1, inner.calls)
}
