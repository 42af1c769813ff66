package models

import "time"

// Contact change events consumed by the audience worker.
const (
	EventTypeContactCreated         = "contact.created"
	EventTypeContactUpdated         = "contact.updated"
	EventTypeContactMessageReceived = "contact.message_received"
)

// EventTypeSegmentEntered is published once per contact and segment.
const EventTypeSegmentEntered = "segment.entered"

// EventTypeSegmentUpdated is published on the config topic whenever a saved
// segment changes.
const EventTypeSegmentUpdated = "segment_updated"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionReload = "reload"
)

type SegmentConfigEvent struct {
	EventType string    `json:"event_type"`
	SegmentID string    `json:"segment_id,omitempty"`
	Action    string    `json:"action"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy string    `json:"changed_by,omitempty"`
}

type SegmentEntry struct {
	SegmentID   string    `json:"segmentId"`
	SegmentName string    `json:"segmentName"`
	ContactID   string    `json:"contactId"`
	OwnerID     string    `json:"ownerId"`
	CompanyID   string    `json:"companyId,omitempty"`
	EnteredAt   time.Time `json:"enteredAt"`
	TriggeredBy string    `json:"triggeredBy"`
}
