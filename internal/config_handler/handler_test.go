package config_handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wacrm/internal/logger"
	"wacrm/pkg/models"
	"wacrm/pkg/retry"
)

type countingReloader struct {
	calls int
	err   error
}

func (r *countingReloader) ReloadSegments(context.Context) error {
	r.calls++
	return r.err
}

func configEnvelope(t *testing.T, event models.SegmentConfigEvent) models.Envelope {
	t.Helper()
	payload, err := models.PayloadFrom(event)
	require.NoError(t, err)
	return *models.NewEnvelopeBuilder(event.EventType, "audience-api").WithPayload(payload).Build()
}

func TestHandleConfigUpdateEvent(t *testing.T) {
	tests := []struct {
		name      string
		envelope  func(t *testing.T) models.Envelope
		reloadErr error
		wantCalls int
		wantErr   bool
	}{
		{
			name: "segment update reloads",
			envelope: func(t *testing.T) models.Envelope {
				return configEnvelope(t, models.SegmentConfigEvent{EventType: models.EventTypeSegmentUpdated, SegmentID: "s1", Action: models.ActionUpdate})
			},
			wantCalls: 1,
		},
		{
			name: "other event type ignored",
			envelope: func(t *testing.T) models.Envelope {
				return configEnvelope(t, models.SegmentConfigEvent{EventType: "rule_updated", Action: models.ActionUpdate})
			},
			wantCalls: 0,
		},
		{
			name: "missing type ignored",
			envelope: func(*testing.T) models.Envelope {
				return models.Envelope{ID: "x", Payload: map[string]interface{}{}}
			},
			wantCalls: 0,
		},
		{
			name: "reload failure is returned",
			envelope: func(t *testing.T) models.Envelope {
				return configEnvelope(t, models.SegmentConfigEvent{EventType: models.EventTypeSegmentUpdated, Action: models.ActionDelete})
			},
			reloadErr: errors.New("postgres down"),
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reloader := &countingReloader{err: tt.reloadErr}
			h := NewHandler(models.EventTypeSegmentUpdated, reloader, logger.NopLogger())

			err := h.HandleConfigUpdateEvent(context.Background(), tt.envelope(t))
			assert.Equal(t, tt.wantCalls, reloader.calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandleConfigUpdateEvent_BadPayloadIsFatal(t *testing.T) {
	h := NewHandler(models.EventTypeSegmentUpdated, &countingReloader{}, logger.NopLogger())
	env := models.Envelope{
		ID:      "x",
		Type:    models.EventTypeSegmentUpdated,
		Payload: map[string]interface{}{"timestamp": "not-a-time"},
	}

	err := h.HandleConfigUpdateEvent(context.Background(), env)
	assert.True(t, retry.IsFatal(err))
}
