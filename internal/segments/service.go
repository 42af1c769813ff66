package segments

import (
	"context"
	"strings"
	"time"

	"wacrm/internal/constants"
	"wacrm/internal/contacts"
	"wacrm/internal/logger"
	"wacrm/internal/segment"
	pkgerrors "wacrm/pkg/errors"
	"wacrm/pkg/models"
)

const defaultChangedBy = "system"

// Notifier is implemented by *ConfigEventProducer.
type Notifier interface {
	PublishSegmentEvent(ctx context.Context, action string, seg *Segment, changedBy string) error
}

// ContactSearcher is implemented by *contacts.Service.
type ContactSearcher interface {
	Search(ctx context.Context, req contacts.SearchRequest) (*contacts.SearchResult, error)
}

type Service struct {
	repo     Repository
	notifier Notifier
	contacts ContactSearcher
	logger   logger.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithConfigEvents(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithPreview(searcher ContactSearcher) ServiceOption {
	return func(s *Service) {
		s.contacts = searcher
	}
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, scope segment.Scope, req CreateSegmentRequest, changedBy string) (*Segment, error) {
	if err := ValidateCreateSegment(req, s.now()); err != nil {
		return nil, err
	}

	seg := &Segment{
		OwnerID:     scope.OwnerID,
		CompanyID:   scope.CompanyID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Filter:      req.Filter,
		Enabled:     getEnabledValue(req.Enabled),
	}

	changedBy = changedByOrDefault(changedBy)
	if err := s.repo.Create(ctx, seg, changedBy); err != nil {
		return nil, storeError(err)
	}

	s.logger.InfowCtx(ctx, "Segment created", "segment_id", seg.ID, "name", seg.Name, "changed_by", changedBy)
	s.publish(ctx, models.ActionCreate, seg, changedBy)
	return seg, nil
}

func (s *Service) List(ctx context.Context, scope segment.Scope) ([]Segment, error) {
	segments, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, storeError(err)
	}
	return segments, nil
}

func (s *Service) Get(ctx context.Context, scope segment.Scope, id string) (*Segment, error) {
	seg, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, storeError(err)
	}
	return seg, nil
}

func (s *Service) Update(ctx context.Context, scope segment.Scope, id string, req UpdateSegmentRequest, changedBy string) (*Segment, error) {
	if err := ValidateUpdateSegment(req, s.now()); err != nil {
		return nil, err
	}

	seg, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, storeError(err)
	}

	if req.Name != nil {
		seg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		seg.Description = *req.Description
	}
	if req.Filter != nil {
		seg.Filter = req.Filter
	}
	if req.Enabled != nil {
		seg.Enabled = *req.Enabled
	}

	return s.save(ctx, seg, models.ActionUpdate, changedBy)
}

// Toggle flips the enabled flag.
func (s *Service) Toggle(ctx context.Context, scope segment.Scope, id, changedBy string) (*Segment, error) {
	seg, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, storeError(err)
	}
	seg.Enabled = !seg.Enabled
	return s.save(ctx, seg, models.ActionToggle, changedBy)
}

func (s *Service) Delete(ctx context.Context, scope segment.Scope, id, changedBy string) error {
	changedBy = changedByOrDefault(changedBy)
	seg, err := s.repo.Delete(ctx, scope, id, changedBy)
	if err != nil {
		return storeError(err)
	}

	s.logger.InfowCtx(ctx, "Segment deleted", "segment_id", seg.ID, "name", seg.Name, "changed_by", changedBy)
	s.publish(ctx, models.ActionDelete, seg, changedBy)
	return nil
}

func (s *Service) History(ctx context.Context, scope segment.Scope, id string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > constants.MaxHistoryLimit {
		limit = constants.DefaultHistoryLimit
	}
	entries, err := s.repo.History(ctx, scope, id, limit)
	if err != nil {
		return nil, storeError(err)
	}
	if len(entries) == 0 {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return entries, nil
}

// Preview runs a saved segment against the caller's contacts. The filter is
// compiled on every call, so relative date windows follow the calendar.
func (s *Service) Preview(ctx context.Context, scope segment.Scope, id string, page contacts.Page) (*contacts.SearchResult, error) {
	if s.contacts == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "segment preview not configured")
	}

	seg, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return nil, storeError(err)
	}

	spec, err := seg.Filter.Specification()
	if err != nil {
		return nil, pkgerrors.ErrInternal.WithCause(err).WithDetail("message", "stored segment filter is unreadable")
	}

	return s.contacts.Search(ctx, contacts.SearchRequest{
		Scope: seg.Scope(),
		Spec:  spec,
		Page:  page,
	})
}

func (s *Service) save(ctx context.Context, seg *Segment, action, changedBy string) (*Segment, error) {
	changedBy = changedByOrDefault(changedBy)
	if err := s.repo.Update(ctx, seg, action, changedBy); err != nil {
		return nil, storeError(err)
	}

	s.logger.InfowCtx(ctx, "Segment updated",
		"segment_id", seg.ID,
		"action", action,
		"version", seg.Version,
		"enabled", seg.Enabled,
		"changed_by", changedBy,
	)
	s.publish(ctx, action, seg, changedBy)
	return seg, nil
}

func (s *Service) publish(ctx context.Context, action string, seg *Segment, changedBy string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishSegmentEvent(ctx, action, seg, changedBy); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish segment config event",
			"segment_id", seg.ID,
			"action", action,
			"error", err,
		)
	}
}

func storeError(err error) error {
	var appErr *pkgerrors.Error
	if pkgerrors.As(err, &appErr) {
		return err
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func changedByOrDefault(changedBy string) string {
	if changedBy = strings.TrimSpace(changedBy); changedBy != "" {
		return changedBy
	}
	return defaultChangedBy
}
