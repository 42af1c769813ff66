package segment

import (
	"context"
	"errors"
	"strings"
	"time"

	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	"wacrm/pkg/metrics"
	"wacrm/pkg/tracing"
)

var errNoGroupStore = errors.New("contact group store is not configured")

// Group is an active contact group with its member contact ids.
type Group struct {
	ID        string
	MemberIDs []string
}

// GroupStore returns the active groups among refs that belong to the
// caller. Refs that are malformed or not found are simply absent from the
// result.
type GroupStore interface {
	FindActiveGroups(ctx context.Context, scope Scope, refs []string) ([]Group, error)
}

// Membership is the outcome of resolving contactGroupRefs.
type Membership struct {
	// Requested is false when no refs were given, or when a failed lookup
	// was allowed to drop the constraint.
	Requested  bool
	ContactIDs []string
	// Degraded marks that the lookup failed and the fallback policy applied.
	Degraded bool
}

// Predicate returns the membership constraint. Requested groups without
// members produce Nothing.
func (m Membership) Predicate() (Predicate, bool) {
	if !m.Requested {
		return Predicate{}, false
	}
	if len(m.ContactIDs) == 0 {
		return Nothing(), true
	}
	ids := make([]interface{}, len(m.ContactIDs))
	for i, id := range m.ContactIDs {
		ids[i] = id
	}
	return In(IdentityField, ids...), true
}

type MembershipResolver struct {
	store   GroupStore
	onError string
	timeout time.Duration
	logger  logger.Logger
}

func NewMembershipResolver(store GroupStore, cfg config.MembershipConfig, log logger.Logger) *MembershipResolver {
	onError := cfg.OnError
	if onError == "" {
		onError = constants.FallbackAllow
	}
	return &MembershipResolver{
		store:   store,
		onError: onError,
		timeout: cfg.LookupTimeout,
		logger:  log,
	}
}

// Resolve looks the refs up once and unions the members of every group
// found. A non-empty ref list always constrains the result, even when every
// ref is blank. A cancelled request returns its context error before any
// lookup is issued. Storage failures never fail the request; they go through the
// configured fallback instead.
func (r *MembershipResolver) Resolve(ctx context.Context, scope Scope, refs []string) (Membership, error) {
	if len(refs) == 0 {
		return Membership{}, nil
	}

	if err := ctx.Err(); err != nil {
		return Membership{}, err
	}

	// Blank refs name no group, so a list of only blanks has no members.
	refs = distinctStrings(refs)
	if len(refs) == 0 {
		return Membership{Requested: true}, nil
	}

	ctx, span := tracing.GetTracer("segment").Start(ctx, "segment.membership.resolve")
	defer span.End()

	if r.store == nil {
		return r.fallback(ctx, refs, errNoGroupStore), nil
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	groups, err := r.store.FindActiveGroups(lookupCtx, scope, refs)
	if err != nil {
		metrics.ObserveMembershipLookup(time.Since(start), "error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Membership{}, ctxErr
		}
		return r.fallback(ctx, refs, err), nil
	}
	metrics.ObserveMembershipLookup(time.Since(start), "success")

	ids := unionMembers(groups)
	if len(ids) == 0 {
		r.logger.DebugwCtx(ctx, "Selected contact groups have no members",
			"group_refs", refs,
			"groups_found", len(groups),
		)
	}

	return Membership{Requested: true, ContactIDs: ids}, nil
}

func (r *MembershipResolver) fallback(ctx context.Context, refs []string, err error) Membership {
	reason := "lookup_error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}

	if r.onError == constants.FallbackDeny {
		metrics.FallbackUsageTotal.WithLabelValues("membership", "deny_on_error", reason).Inc()
		r.logger.WarnwCtx(ctx, "Contact group lookup failed, matching no contacts (fallback: deny)",
			"group_refs", refs,
			"error", err,
		)
		return Membership{Requested: true, Degraded: true}
	}

	metrics.FallbackUsageTotal.WithLabelValues("membership", "allow_on_error", reason).Inc()
	r.logger.WarnwCtx(ctx, "Contact group lookup failed, omitting membership constraint (fallback: allow)",
		"group_refs", refs,
		"error", err,
	)
	return Membership{Degraded: true}
}

func unionMembers(groups []Group) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, group := range groups {
		for _, id := range group.MemberIDs {
			if _, ok := seen[id]; ok || id == "" {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// distinctStrings trims, drops blanks and removes duplicates, keeping the
// first occurrence order.
func distinctStrings(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
