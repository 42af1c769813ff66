package segments

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"wacrm/internal/segment"
)

// Document is a JSONB column value. Filters are kept as raw JSON so the
// author's numbers and date strings survive the round trip unchanged.
type Document json.RawMessage

func (f Document) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("{}"), nil
	}
	return []byte(f), nil
}

func (f *Document) UnmarshalJSON(data []byte) error {
	if f == nil {
		return fmt.Errorf("segments: UnmarshalJSON on nil Document")
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	*f = append((*f)[:0], data...)
	return nil
}

func (f Document) Value() (driver.Value, error) {
	if len(bytes.TrimSpace(f)) == 0 {
		return []byte("{}"), nil
	}
	return []byte(f), nil
}

func (f *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = nil
	case []byte:
		*f = append(Document(nil), v...)
	case string:
		*f = Document(v)
	default:
		return fmt.Errorf("segments: cannot scan %T into Document", src)
	}
	return nil
}

// Specification decodes the document as an audience filter.
func (f Document) Specification() (*segment.Specification, error) {
	return segment.ParseSpecification(f)
}

type Segment struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	CompanyID   string    `json:"companyId,omitempty" db:"company_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Filter      Document  `json:"filter" swaggertype:"object" db:"filter"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	Version     int       `json:"version" db:"version"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

func (s *Segment) Scope() segment.Scope {
	return segment.Scope{OwnerID: s.OwnerID, CompanyID: s.CompanyID}
}

type CreateSegmentRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description string   `json:"description"`
	Filter      Document `json:"filter" swaggertype:"object" binding:"required"`
	Enabled     *bool    `json:"enabled"`
}

type UpdateSegmentRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Description *string  `json:"description"`
	Filter      Document `json:"filter,omitempty" swaggertype:"object"`
	Enabled     *bool    `json:"enabled"`
}

// HistoryEntry is a snapshot of a segment taken on every change.
type HistoryEntry struct {
	ID        int64     `json:"id" db:"id"`
	SegmentID string    `json:"segmentId" db:"segment_id"`
	Version   int       `json:"version" db:"version"`
	Action    string    `json:"action" db:"action"`
	ChangedBy string    `json:"changedBy" db:"changed_by"`
	Snapshot  Document  `json:"snapshot" swaggertype:"object" db:"snapshot"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func getEnabledValue(enabled *bool) bool {
	if enabled == nil {
		return true
	}
	return *enabled
}

func snapshotOf(s *Segment) (Document, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot segment: %w", err)
	}
	return Document(data), nil
}
