package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"wacrm/internal/broker"
	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	"wacrm/internal/segments"
	"wacrm/pkg/cel"
	"wacrm/pkg/metrics"
	"wacrm/pkg/models"
	"wacrm/pkg/retry"
	"wacrm/pkg/tracing"
)

const maxCachedPrograms = 1024

// SegmentSource is implemented by *segments.PostgresRepository.
type SegmentSource interface {
	ListEnabled(ctx context.Context) ([]segments.Segment, error)
}

// SegmentCompiler is implemented by *segment.Compiler.
type SegmentCompiler interface {
	Compile(ctx context.Context, req segment.Request) (*segment.Compilation, error)
}

type activeSegment struct {
	ID   string
	Name string
	Spec *segment.Specification
}

// Service watches contact changes and announces contacts that newly match a
// saved segment.
type Service struct {
	source       SegmentSource
	compiler     SegmentCompiler
	evaluator    *cel.Evaluator
	entries      EntryRepository
	publisher    broker.Producer
	entriesTopic string
	cfg          config.AutomationConfig
	logger       logger.Logger

	segmentsMu sync.RWMutex
	byScope    map[segment.Scope][]activeSegment

	programsMu sync.Mutex
	programs   map[string]*cel.Program
}

func NewService(
	source SegmentSource,
	compiler SegmentCompiler,
	entries EntryRepository,
	publisher broker.Producer,
	entriesTopic string,
	cfg config.AutomationConfig,
	log logger.Logger,
) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if entriesTopic == "" {
		entriesTopic = constants.DefaultSegmentEntriesTopic
	}

	return &Service{
		source:       source,
		compiler:     compiler,
		evaluator:    evaluator,
		entries:      entries,
		publisher:    publisher,
		entriesTopic: entriesTopic,
		cfg:          cfg,
		logger:       log,
		byScope:      make(map[segment.Scope][]activeSegment),
		programs:     make(map[string]*cel.Program),
	}, nil
}

// HandleContactEvent evaluates every enabled segment of the contact's owner
// against the contact carried by the event.
func (s *Service) HandleContactEvent(ctx context.Context, msg models.Envelope) (err error) {
	ctx, span := tracing.GetTracer("automation").Start(ctx, "automation.handle_contact_event")
	defer span.End()

	start := time.Now()
	status := "processed"
	defer func() {
		if err != nil {
			status = "error"
		}
		metrics.ObserveAutomationDuration(time.Since(start), status)
	}()

	if msg.Type != "" && !strings.HasPrefix(msg.Type, "contact.") {
		status = "ignored"
		s.logger.DebugwCtx(ctx, "Ignoring non-contact event", "event_type", msg.Type, "event_id", msg.ID)
		return nil
	}

	contact, err := contacts.ContactFromPayload(msg.Payload)
	if err != nil {
		return retry.NewFatalError(fmt.Errorf("event %s: %w", msg.ID, err))
	}

	scope := contact.Scope()
	active := s.segmentsFor(scope)
	if len(active) == 0 {
		status = "no_segments"
		return nil
	}

	record := contact.ToRecord()
	for _, seg := range active {
		if err := ctx.Err(); err != nil {
			return err
		}

		matched, err := s.matches(ctx, scope, seg, record)
		if err != nil {
			if isContextError(err) {
				return err
			}
			metrics.IncSegmentEvaluation(seg.ID, "error")
			s.logger.ErrorwCtx(ctx, "Segment evaluation failed",
				"segment_id", seg.ID,
				"contact_id", contact.ID.Hex(),
				"error", err,
			)
			continue
		}

		if !matched {
			metrics.IncSegmentEvaluation(seg.ID, "miss")
			continue
		}
		metrics.IncSegmentEvaluation(seg.ID, "match")

		if err := s.enter(ctx, seg, contact, msg.Type); err != nil {
			return err
		}
	}

	return nil
}

// matches compiles the segment at the current time, so relative date
// windows and group membership are as of this event.
func (s *Service) matches(ctx context.Context, scope segment.Scope, seg activeSegment, record map[string]interface{}) (bool, error) {
	compilation, err := s.compiler.Compile(ctx, segment.Request{Scope: scope, Spec: seg.Spec})
	if err != nil {
		return false, fmt.Errorf("failed to compile segment: %w", err)
	}

	switch {
	case compilation.Predicate.Kind == segment.KindNone:
		return false, nil
	case compilation.Predicate.IsMatchAll():
		return true, nil
	}

	program, err := s.program(compilation.Predicate)
	if err != nil {
		return false, err
	}
	return program.Matches(ctx, record)
}

// program returns a cached CEL program for the predicate. Relative dates
// resolve to day boundaries, so a segment's expression is stable for a day
// and the cache stays small.
func (s *Service) program(p segment.Predicate) (*cel.Program, error) {
	expression, err := cel.Render(p)
	if err != nil {
		return nil, fmt.Errorf("failed to render predicate: %w", err)
	}

	s.programsMu.Lock()
	defer s.programsMu.Unlock()

	if program, ok := s.programs[expression]; ok {
		return program, nil
	}

	program, err := s.evaluator.CompileExpression(expression)
	if err != nil {
		return nil, err
	}
	if len(s.programs) >= maxCachedPrograms {
		s.programs = make(map[string]*cel.Program)
	}
	s.programs[expression] = program
	return program, nil
}

func (s *Service) enter(ctx context.Context, seg activeSegment, contact *contacts.Contact, triggeredBy string) error {
	key := entryKey(seg.ID, contact.ID.Hex())

	first, err := s.entries.SetNX(ctx, key, time.Now().Unix(), s.entryTTL())
	reserved := err == nil
	if err != nil {
		if !s.allowOnRedisError(ctx, err, seg.ID) {
			metrics.IncSegmentEntry("error")
			return fmt.Errorf("segment entry check failed for %s: %w", key, err)
		}
		first = true
	}
	if !first {
		metrics.IncSegmentEntry("duplicate")
		return nil
	}

	entry := models.SegmentEntry{
		SegmentID:   seg.ID,
		SegmentName: seg.Name,
		ContactID:   contact.ID.Hex(),
		OwnerID:     contact.OwnerID,
		CompanyID:   contact.CompanyID,
		EnteredAt:   time.Now().UTC(),
		TriggeredBy: triggeredBy,
	}
	if err := s.publish(ctx, entry); err != nil {
		metrics.IncSegmentEntry("error")
		if reserved {
			if releaseErr := s.entries.Release(ctx, key); releaseErr != nil {
				s.logger.WarnwCtx(ctx, "Failed to release segment entry after publish error",
					"key", key,
					"error", releaseErr,
				)
			}
		}
		return err
	}

	metrics.IncSegmentEntry("published")
	s.logger.InfowCtx(ctx, "Contact entered segment",
		"segment_id", seg.ID,
		"contact_id", entry.ContactID,
	)
	return nil
}

func (s *Service) publish(ctx context.Context, entry models.SegmentEntry) error {
	payload, err := models.PayloadFrom(entry)
	if err != nil {
		return retry.NewFatalError(err)
	}

	envelope := models.NewEnvelopeBuilder(models.EventTypeSegmentEntered, "audience-worker").
		WithPayload(payload).
		WithScope(entry.OwnerID, entry.CompanyID).
		WithTraceID(tracing.TraceID(ctx)).
		Build()

	if err := s.publisher.Publish(ctx, s.entriesTopic, *envelope); err != nil {
		return fmt.Errorf("failed to publish segment entry: %w", err)
	}
	return nil
}

func (s *Service) allowOnRedisError(ctx context.Context, err error, segmentID string) bool {
	if s.cfg.Dedup.OnRedisError == constants.FallbackDeny {
		metrics.FallbackUsageTotal.WithLabelValues("automation", "deny_on_error", "redis_error").Inc()
		return false
	}

	metrics.FallbackUsageTotal.WithLabelValues("automation", "allow_on_error", "redis_error").Inc()
	s.logger.WarnwCtx(ctx, "Redis error during segment entry check, publishing anyway (fallback: allow)",
		"segment_id", segmentID,
		"error", err,
	)
	return true
}

func (s *Service) entryTTL() time.Duration {
	if s.cfg.Dedup.TTLSeconds > 0 {
		return time.Duration(s.cfg.Dedup.TTLSeconds) * time.Second
	}
	return constants.DefaultSegmentEntryTTL
}

func (s *Service) segmentsFor(scope segment.Scope) []activeSegment {
	s.segmentsMu.RLock()
	defer s.segmentsMu.RUnlock()
	return s.byScope[scope]
}

// ActiveSegments returns how many segments are loaded.
func (s *Service) ActiveSegments() int {
	s.segmentsMu.RLock()
	defer s.segmentsMu.RUnlock()

	total := 0
	for _, list := range s.byScope {
		total += len(list)
	}
	return total
}

// ReloadSegments replaces the loaded segments with the enabled ones in
// storage. Segments whose stored filter no longer parses are skipped.
func (s *Service) ReloadSegments(ctx context.Context) error {
	stored, err := s.source.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load segments: %w", err)
	}

	byScope := make(map[segment.Scope][]activeSegment)
	loaded := 0
	for i := range stored {
		seg := &stored[i]
		spec, err := seg.Filter.Specification()
		if err != nil {
			s.logger.WarnwCtx(ctx, "Skipping segment with unreadable filter",
				"segment_id", seg.ID,
				"error", err,
			)
			continue
		}
		byScope[seg.Scope()] = append(byScope[seg.Scope()], activeSegment{ID: seg.ID, Name: seg.Name, Spec: spec})
		loaded++
	}

	s.segmentsMu.Lock()
	s.byScope = byScope
	s.segmentsMu.Unlock()

	s.programsMu.Lock()
	s.programs = make(map[string]*cel.Program)
	s.programsMu.Unlock()

	metrics.SetAutomationActiveSegments(loaded)
	s.logger.InfowCtx(ctx, "Successfully reloaded segments",
		"segments_count", loaded,
		"owners_count", len(byScope),
	)
	return nil
}

// StartReloader loads segments immediately and then on every interval tick,
// each tick delayed by a random jitter so workers do not reload in step.
func (s *Service) StartReloader(ctx context.Context) error {
	if err := s.ReloadSegments(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload segments", "error", err)
	}

	interval := time.Duration(s.cfg.Reload.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = constants.DefaultSegmentReloadInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.applyJitter(ctx); err != nil {
				return err
			}
			if err := s.ReloadSegments(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload segments", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) applyJitter(ctx context.Context) error {
	if s.cfg.Reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.cfg.Reload.JitterMaxMilliseconds)) * time.Millisecond
	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func entryKey(segmentID, contactID string) string {
	return constants.CacheKeyPrefixSegmentEntry + segmentID + ":" + contactID
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
