package segment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	"wacrm/pkg/metrics"
	"wacrm/pkg/tracing"
)

// Request is one compilation input. Params carries the raw query string for
// the legacy path and is ignored whenever Spec holds a structured filter.
type Request struct {
	Scope  Scope
	Spec   *Specification
	Params url.Values
}

// Compilation is the compiled filter plus what was left out of it.
type Compilation struct {
	Predicate          Predicate
	Mode               string
	Dropped            []DropError
	MembershipDegraded bool
	CompiledAt         time.Time
}

// UnresolvedConditionsError is returned in strict mode instead of dropping
// conditions.
type UnresolvedConditionsError struct {
	Dropped []DropError
}

func (e *UnresolvedConditionsError) Error() string {
	reasons := make([]string, len(e.Dropped))
	for i := range e.Dropped {
		reasons[i] = e.Dropped[i].Error()
	}
	return fmt.Sprintf("%d condition(s) could not be resolved: %s", len(e.Dropped), strings.Join(reasons, "; "))
}

func (e *UnresolvedConditionsError) Unwrap() error {
	return ErrInvalidSpecification
}

type Option func(*Compiler)

// WithClock replaces the wall clock used to anchor relative dates.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) {
		c.now = now
	}
}

type Compiler struct {
	membership *MembershipResolver
	strict     bool
	now        func() time.Time
	logger     logger.Logger
}

func NewCompiler(membership *MembershipResolver, cfg config.SegmentationConfig, log logger.Logger, opts ...Option) *Compiler {
	if membership == nil {
		membership = NewMembershipResolver(nil, cfg.Membership, log)
	}
	c := &Compiler{
		membership: membership,
		strict:     cfg.Strict,
		now:        time.Now,
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile turns a request into one predicate. Relative dates are anchored
// at the compiler clock's current time, so the same stored filter moves
// with the calendar.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Compilation, error) {
	ctx, span := tracing.GetTracer("segment").Start(ctx, "segment.compile")
	defer span.End()

	start := time.Now()
	now := c.now().UTC()

	var (
		compilation *Compilation
		err         error
	)
	if req.Spec.IsZero() {
		compilation = &Compilation{
			Predicate:  LegacyPredicate(req.Params),
			Mode:       constants.CompileModeLegacy,
			CompiledAt: now,
		}
	} else {
		compilation, err = c.compileStructured(ctx, req, now)
	}

	mode := constants.CompileModeStructured
	if compilation != nil {
		mode = compilation.Mode
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncCompilation(mode, status)
	metrics.ObserveCompileDuration(time.Since(start), mode)

	if err != nil {
		return nil, err
	}

	c.logger.DebugwCtx(ctx, "Compiled audience filter",
		"mode", compilation.Mode,
		"predicate", compilation.Predicate.String(),
		"dropped", len(compilation.Dropped),
	)
	return compilation, nil
}

func (c *Compiler) compileStructured(ctx context.Context, req Request, now time.Time) (*Compilation, error) {
	spec := req.Spec

	conditions, hasConditions, drops := c.compileConditionGroups(ctx, spec, now)
	if c.strict && len(drops) > 0 {
		return nil, &UnresolvedConditionsError{Dropped: drops}
	}

	var parts []Predicate

	if tags := distinctStrings(spec.Tags); len(tags) > 0 {
		values := make([]interface{}, len(tags))
		for i, tag := range tags {
			values[i] = tag
		}
		parts = append(parts, In(TagsField, values...))
	}

	if spec.WhatsappOptedIn != nil && *spec.WhatsappOptedIn {
		parts = append(parts, Eq(OptInField, true))
	}

	membership, err := c.membership.Resolve(ctx, req.Scope, spec.ContactGroupRefs)
	if err != nil {
		return nil, err
	}
	if p, ok := membership.Predicate(); ok {
		parts = append(parts, p)
	}

	if hasConditions {
		parts = append(parts, conditions)
	}

	return &Compilation{
		Predicate:          AllOf(parts...),
		Mode:               constants.CompileModeStructured,
		Dropped:            drops,
		MembershipDegraded: membership.Degraded,
		CompiledAt:         now,
	}, nil
}

func (c *Compiler) compileConditionGroups(ctx context.Context, spec *Specification, now time.Time) (Predicate, bool, []DropError) {
	var (
		groups []Predicate
		drops  []DropError
	)

	for i, group := range spec.ConditionGroups {
		leaves := make([]Predicate, 0, len(group.Conditions))
		for _, condition := range group.Conditions {
			res := ResolveCondition(condition, now)
			if !res.OK() {
				c.reportDrop(ctx, i, res.Dropped)
				drops = append(drops, *res.Dropped)
				continue
			}
			leaves = append(leaves, res.Predicate)
		}

		if p, ok := CombineGroup(group.Operator, leaves); ok {
			groups = append(groups, p)
		}
	}

	p, ok := CombineGroups(spec.GroupOperator, groups)
	return p, ok, drops
}

func (c *Compiler) reportDrop(ctx context.Context, group int, drop *DropError) {
	metrics.IncConditionDropped(drop.Code)
	c.logger.DebugwCtx(ctx, "Dropped unresolvable filter condition",
		"group", group,
		"field", drop.Field,
		"operator", drop.Operator,
		"code", drop.Code,
		"reason", drop.Reason,
	)
}
