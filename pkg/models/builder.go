package models

import (
	"time"

	"github.com/google/uuid"
)

type EnvelopeBuilder struct {
	envelope *Envelope
}

func NewEnvelopeBuilder(eventType, source string) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: &Envelope{
			Type:    eventType,
			Source:  source,
			Payload: make(map[string]interface{}),
		},
	}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithTimestamp(timestamp time.Time) *EnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

func (b *EnvelopeBuilder) WithPayload(payload map[string]interface{}) *EnvelopeBuilder {
	b.envelope.Payload = payload
	return b
}

func (b *EnvelopeBuilder) WithScope(ownerID, companyID string) *EnvelopeBuilder {
	b.envelope.Metadata.OwnerID = ownerID
	b.envelope.Metadata.CompanyID = companyID
	return b
}

func (b *EnvelopeBuilder) WithTraceID(traceID string) *EnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

// Build fills in a random id and the current time when they were not set.
func (b *EnvelopeBuilder) Build() *Envelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.New().String()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now().UTC()
	}
	return b.envelope
}
