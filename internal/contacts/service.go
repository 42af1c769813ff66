package contacts

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/pkg/errors"
	"wacrm/pkg/metrics"
)

// FilterCompiler is implemented by *segment.Compiler.
type FilterCompiler interface {
	Compile(ctx context.Context, req segment.Request) (*segment.Compilation, error)
}

type SearchRequest struct {
	Scope  segment.Scope
	Spec   *segment.Specification
	Params url.Values
	Page   Page
}

type SearchResult struct {
	Contacts           []Contact           `json:"contacts"`
	Total              int64               `json:"total"`
	Page               int                 `json:"page"`
	Limit              int                 `json:"limit"`
	Mode               string              `json:"mode"`
	Dropped            []segment.DropError `json:"droppedConditions,omitempty"`
	MembershipDegraded bool                `json:"membershipDegraded,omitempty"`
}

// Explanation shows how a filter compiles without running it.
type Explanation struct {
	Predicate          string              `json:"predicate"`
	Query              bson.M              `json:"query"`
	Mode               string              `json:"mode"`
	Dropped            []segment.DropError `json:"droppedConditions,omitempty"`
	MembershipDegraded bool                `json:"membershipDegraded,omitempty"`
}

type Service struct {
	compiler FilterCompiler
	repo     Repository
	logger   logger.Logger
}

func NewService(compiler FilterCompiler, repo Repository, log logger.Logger) *Service {
	return &Service{
		compiler: compiler,
		repo:     repo,
		logger:   log,
	}
}

// Search compiles the filter and runs it against the caller's contacts.
// Count and page are fetched concurrently. A filter that compiles to
// match-nothing returns an empty page without touching the store.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()
	page := req.Page.Normalize()

	compilation, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Contacts:           []Contact{},
		Page:               page.Number,
		Limit:              page.Limit,
		Mode:               compilation.Mode,
		Dropped:            compilation.Dropped,
		MembershipDegraded: compilation.MembershipDegraded,
	}

	if compilation.Predicate.Kind == segment.KindNone {
		metrics.ObserveContactSearch(time.Since(start), compilation.Mode, "empty")
		return result, nil
	}

	query, err := BuildQuery(compilation.Predicate)
	if err != nil {
		metrics.ObserveContactSearch(time.Since(start), compilation.Mode, "error")
		return nil, errors.ErrInternal.WithCause(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.Count(gctx, req.Scope, query)
		if err != nil {
			return err
		}
		result.Total = total
		return nil
	})
	g.Go(func() error {
		contacts, err := s.repo.Find(gctx, req.Scope, query, page)
		if err != nil {
			return err
		}
		result.Contacts = contacts
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.ObserveContactSearch(time.Since(start), compilation.Mode, "error")
		s.logger.ErrorwCtx(ctx, "Contact search failed", "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.ErrTimeout.WithCause(ctxErr)
		}
		return nil, errors.ErrServiceUnavailable.WithCause(err)
	}

	metrics.ObserveContactSearch(time.Since(start), compilation.Mode, "success")
	s.logger.DebugwCtx(ctx, "Contact search completed",
		"mode", compilation.Mode,
		"total", result.Total,
		"returned", len(result.Contacts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) Explain(ctx context.Context, req SearchRequest) (*Explanation, error) {
	compilation, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}

	query, err := BuildQuery(compilation.Predicate)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return &Explanation{
		Predicate:          compilation.Predicate.String(),
		Query:              Scoped(req.Scope, query),
		Mode:               compilation.Mode,
		Dropped:            compilation.Dropped,
		MembershipDegraded: compilation.MembershipDegraded,
	}, nil
}

func (s *Service) compile(ctx context.Context, req SearchRequest) (*segment.Compilation, error) {
	compilation, err := s.compiler.Compile(ctx, segment.Request{
		Scope:  req.Scope,
		Spec:   req.Spec,
		Params: req.Params,
	})
	if err == nil {
		return compilation, nil
	}

	var unresolved *segment.UnresolvedConditionsError
	switch {
	case errors.As(err, &unresolved):
		return nil, errors.ErrValidation.
			WithCause(err).
			WithDetail("message", "filter contains conditions that cannot be applied").
			WithDetail("conditions", unresolved.Dropped)
	case errors.Is(err, segment.ErrInvalidSpecification):
		return nil, errors.ErrValidation.WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, errors.ErrTimeout.WithCause(err)
	default:
		return nil, errors.ErrInternal.WithCause(err)
	}
}
