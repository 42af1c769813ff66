package contacts

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"wacrm/internal/config"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	apperrors "wacrm/pkg/errors"
)

var fixedNow = time.Date(2025, 7, 20, 15, 30, 0, 0, time.UTC)

type fakeRepository struct {
	mu       sync.Mutex
	contacts []Contact
	total    int64
	err      error

	findCalls  int
	countCalls int
	lastFilter bson.M
	lastScope  segment.Scope
	lastPage   Page
}

func (r *fakeRepository) Find(_ context.Context, scope segment.Scope, filter bson.M, page Page) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	r.lastFilter, r.lastScope, r.lastPage = filter, scope, page
	return r.contacts, r.err
}

func (r *fakeRepository) Count(_ context.Context, scope segment.Scope, filter bson.M) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	return r.total, r.err
}

type stubGroups struct {
	groups []segment.Group
	err    error
}

func (s stubGroups) FindActiveGroups(context.Context, segment.Scope, []string) ([]segment.Group, error) {
	return s.groups, s.err
}

func newTestService(repo Repository, groups segment.GroupStore, cfg config.SegmentationConfig) *Service {
	log := logger.NopLogger()
	membership := segment.NewMembershipResolver(groups, cfg.Membership, log)
	compiler := segment.NewCompiler(membership, cfg, log, segment.WithClock(func() time.Time { return fixedNow }))
	return NewService(compiler, repo, log)
}

func parseSpec(t *testing.T, body string) *segment.Specification {
	t.Helper()
	spec, err := segment.ParseSpecification([]byte(body))
	require.NoError(t, err)
	return spec
}

func TestService_Search(t *testing.T) {
	contact := Contact{ID: primitive.NewObjectID(), OwnerID: "owner-1", Name: "Ann"}
	repo := &fakeRepository{contacts: []Contact{contact}, total: 7}
	svc := newTestService(repo, stubGroups{}, config.SegmentationConfig{})

	result, err := svc.Search(context.Background(), SearchRequest{
		Scope: segment.Scope{OwnerID: "owner-1"},
		Spec:  parseSpec(t, `{"tags":["vip"],"conditionGroups":[{"conditions":[{"field":"name","value":"ann"},{"field":"bogus","value":1}]}]}`),
		Page:  Page{Number: 2, Limit: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.Total)
	assert.Equal(t, []Contact{contact}, result.Contacts)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.Limit)
	assert.Equal(t, "structured", result.Mode)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, segment.DropUnknownField, result.Dropped[0].Code)

	assert.Equal(t, 1, repo.findCalls)
	assert.Equal(t, 1, repo.countCalls)
	assert.Equal(t, segment.Scope{OwnerID: "owner-1"}, repo.lastScope)
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"tags": bson.M{"$in": bson.A{"vip"}}},
		bson.M{"name": bson.M{"$regex": "ann", "$options": "i"}},
	}}, repo.lastFilter)
}

func TestService_Search_EmptyGroupsSkipStore(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(repo, stubGroups{groups: []segment.Group{{ID: "g1"}}}, config.SegmentationConfig{})

	result, err := svc.Search(context.Background(), SearchRequest{
		Scope: segment.Scope{OwnerID: "owner-1"},
		Spec:  parseSpec(t, `{"contactGroupRefs":["g1"]}`),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Contacts)
	assert.Zero(t, result.Total)
	assert.Zero(t, repo.findCalls)
	assert.Zero(t, repo.countCalls)
}

func TestService_Search_MembershipFailureFailsOpen(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(repo, stubGroups{err: errors.New("mongo timeout")}, config.SegmentationConfig{})

	result, err := svc.Search(context.Background(), SearchRequest{
		Scope: segment.Scope{OwnerID: "owner-1"},
		Spec:  parseSpec(t, `{"contactGroupRefs":["g1"],"whatsappOptedIn":true}`),
	})
	require.NoError(t, err)

	assert.True(t, result.MembershipDegraded)
	assert.Equal(t, bson.M{"whatsappOptedIn": true}, repo.lastFilter)
}

func TestService_Search_Legacy(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(repo, nil, config.SegmentationConfig{})

	result, err := svc.Search(context.Background(), SearchRequest{
		Scope:  segment.Scope{OwnerID: "owner-1"},
		Params: url.Values{"customField.city": {"Paris"}, "page": {"1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "legacy", result.Mode)
	assert.Equal(t, bson.M{"customFields.city": bson.M{"$regex": "Paris", "$options": "i"}}, repo.lastFilter)
}

func TestService_Search_Errors(t *testing.T) {
	t.Run("strict mode rejects unresolved conditions", func(t *testing.T) {
		svc := newTestService(&fakeRepository{}, nil, config.SegmentationConfig{Strict: true})
		_, err := svc.Search(context.Background(), SearchRequest{
			Scope: segment.Scope{OwnerID: "owner-1"},
			Spec:  parseSpec(t, `{"conditionGroups":[{"conditions":[{"field":"createdAt","operator":"on","value":"garbage"}]}]}`),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTPStatus(err))
		assert.NotNil(t, apperrors.ToErrorResponse(err).Details["conditions"])
	})

	t.Run("store failure", func(t *testing.T) {
		svc := newTestService(&fakeRepository{err: errors.New("connection reset")}, nil, config.SegmentationConfig{})
		_, err := svc.Search(context.Background(), SearchRequest{Scope: segment.Scope{OwnerID: "owner-1"}})
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, apperrors.ToHTTPStatus(err))
	})

	t.Run("cancelled before membership lookup", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc := newTestService(&fakeRepository{}, stubGroups{}, config.SegmentationConfig{})
		_, err := svc.Search(ctx, SearchRequest{
			Scope: segment.Scope{OwnerID: "owner-1"},
			Spec:  parseSpec(t, `{"contactGroupRefs":["g1"]}`),
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusRequestTimeout, apperrors.ToHTTPStatus(err))
	})
}

func TestService_Explain(t *testing.T) {
	svc := newTestService(&fakeRepository{}, nil, config.SegmentationConfig{})

	explanation, err := svc.Explain(context.Background(), SearchRequest{
		Scope: segment.Scope{OwnerID: "owner-1", CompanyID: "company-1"},
		Spec:  parseSpec(t, `{"conditionGroups":[{"conditions":[{"field":"createdAt","operator":"on","value":"2025-07-14"}]}]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "createdAt >= 2025-07-14T00:00:00.000Z && createdAt <= 2025-07-14T23:59:59.999Z", explanation.Predicate)
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"ownerId": "owner-1", "companyId": "company-1"},
		bson.M{"createdAt": bson.M{
			"$gte": time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC),
			"$lte": time.Date(2025, 7, 14, 23, 59, 59, 999_000_000, time.UTC),
		}},
	}}, explanation.Query)
}
