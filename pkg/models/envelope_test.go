package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeBuilder(t *testing.T) {
	payload, err := PayloadFrom(SegmentEntry{SegmentID: "seg-1", ContactID: "c1", OwnerID: "owner-1"})
	require.NoError(t, err)

	env := NewEnvelopeBuilder(EventTypeSegmentEntered, "audience-worker").
		WithPayload(payload).
		WithScope("owner-1", "company-1").
		Build()

	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, "owner-1", env.Metadata.OwnerID)
	assert.Equal(t, "company-1", env.Metadata.CompanyID)
	assert.NoError(t, ValidateEnvelope(env))

	var entry SegmentEntry
	require.NoError(t, env.DecodePayload(&entry))
	assert.Equal(t, "seg-1", entry.SegmentID)
	assert.Equal(t, "c1", entry.ContactID)
}

func TestValidateEnvelope(t *testing.T) {
	valid := func() *Envelope {
		return &Envelope{ID: "1", Type: EventTypeContactUpdated, Timestamp: time.Now(), Payload: map[string]interface{}{}}
	}

	tests := []struct {
		name      string
		mutate    func(*Envelope) *Envelope
		wantField string
	}{
		{name: "nil envelope", mutate: func(*Envelope) *Envelope { return nil }, wantField: "envelope"},
		{name: "missing id", mutate: func(e *Envelope) *Envelope { e.ID = ""; return e }, wantField: "id"},
		{name: "missing type", mutate: func(e *Envelope) *Envelope { e.Type = ""; return e }, wantField: "type"},
		{name: "missing timestamp", mutate: func(e *Envelope) *Envelope { e.Timestamp = time.Time{}; return e }, wantField: "timestamp"},
		{name: "nil payload", mutate: func(e *Envelope) *Envelope { e.Payload = nil; return e }, wantField: "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope(tt.mutate(valid()))
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}

	assert.NoError(t, ValidateEnvelope(valid()))
}
