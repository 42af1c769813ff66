package segments

import (
	"context"
	"fmt"
	"time"

	"wacrm/internal/broker"
	"wacrm/pkg/models"
	"wacrm/pkg/tracing"
)

// ConfigEventProducer tells running workers that a saved segment changed.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewConfigEventProducer(producer broker.Producer, topic, source string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
		source:   source,
	}
}

func (p *ConfigEventProducer) PublishSegmentEvent(ctx context.Context, action string, seg *Segment, changedBy string) error {
	if p == nil || p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.SegmentConfigEvent{
		EventType: models.EventTypeSegmentUpdated,
		SegmentID: seg.ID,
		Action:    action,
		OwnerID:   seg.OwnerID,
		CompanyID: seg.CompanyID,
		Timestamp: time.Now().UTC(),
		ChangedBy: changedBy,
	}

	payload, err := models.PayloadFrom(event)
	if err != nil {
		return fmt.Errorf("failed to encode config event: %w", err)
	}

	envelope := models.NewEnvelopeBuilder(models.EventTypeSegmentUpdated, p.source).
		WithPayload(payload).
		WithScope(seg.OwnerID, seg.CompanyID).
		WithTraceID(tracing.TraceID(ctx)).
		Build()

	return p.producer.Publish(ctx, p.topic, *envelope)
}
