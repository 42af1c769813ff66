package segments

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wacrm/internal/contacts"
	"wacrm/internal/segment"
	pkgerrors "wacrm/pkg/errors"
)

type memoryRepository struct {
	mu       sync.Mutex
	next     int
	segments map[string]*Segment
	history  []HistoryEntry
	err      error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{segments: make(map[string]*Segment)}
}

func (r *memoryRepository) Create(_ context.Context, seg *Segment, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.segments {
		if existing.Scope() == seg.Scope() && existing.Name == seg.Name {
			return pkgerrors.ErrConflict.WithDetail("message", "duplicate name")
		}
	}
	r.next++
	seg.ID = fmt.Sprintf("seg-%d", r.next)
	seg.Version = 1
	stored := *seg
	r.segments[seg.ID] = &stored
	r.record(seg, "create", changedBy)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, scope segment.Scope, id string) (*Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	seg, ok := r.segments[id]
	if !ok || seg.Scope() != scope {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	out := *seg
	return &out, nil
}

func (r *memoryRepository) List(_ context.Context, scope segment.Scope) ([]Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Segment{}
	for _, seg := range r.segments {
		if seg.Scope() == scope {
			out = append(out, *seg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, r.err
}

func (r *memoryRepository) ListEnabled(_ context.Context) ([]Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Segment
	for _, seg := range r.segments {
		if seg.Enabled {
			out = append(out, *seg)
		}
	}
	return out, r.err
}

func (r *memoryRepository) Update(_ context.Context, seg *Segment, action, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	existing, ok := r.segments[seg.ID]
	if !ok || existing.Scope() != seg.Scope() {
		return pkgerrors.ErrNotFound.WithDetail("id", seg.ID)
	}
	seg.Version = existing.Version + 1
	stored := *seg
	r.segments[seg.ID] = &stored
	r.record(seg, action, changedBy)
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, scope segment.Scope, id, changedBy string) (*Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seg, ok := r.segments[id]
	if !ok || seg.Scope() != scope {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	delete(r.segments, id)
	r.record(seg, "delete", changedBy)
	return seg, nil
}

func (r *memoryRepository) History(_ context.Context, _ segment.Scope, id string, limit int) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []HistoryEntry
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.history[i].SegmentID == id {
			out = append(out, r.history[i])
		}
	}
	return out, nil
}

func (r *memoryRepository) record(seg *Segment, action, changedBy string) {
	snapshot, _ := snapshotOf(seg)
	r.history = append(r.history, HistoryEntry{
		ID:        int64(len(r.history) + 1),
		SegmentID: seg.ID,
		Version:   seg.Version,
		Action:    action,
		ChangedBy: changedBy,
		Snapshot:  snapshot,
	})
}

type publishedEvent struct {
	action    string
	segmentID string
	changedBy string
}

type recordingNotifier struct {
	events []publishedEvent
	err    error
}

func (n *recordingNotifier) PublishSegmentEvent(_ context.Context, action string, seg *Segment, changedBy string) error {
	n.events = append(n.events, publishedEvent{action: action, segmentID: seg.ID, changedBy: changedBy})
	return n.err
}

type recordingSearcher struct {
	lastReq contacts.SearchRequest
	result  *contacts.SearchResult
}

func (s *recordingSearcher) Search(_ context.Context, req contacts.SearchRequest) (*contacts.SearchResult, error) {
	s.lastReq = req
	return s.result, nil
}
