package broker

import (
	"context"

	"wacrm/pkg/models"
)

// Producer publishes envelopes. Publish blocks until the broker acknowledges.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.Envelope) error
	Close() error
}

// Consumer delivers envelopes from one topic to a handler until ctx ends.
// Handler errors are retried unless fatal, then parked on the DLQ.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.Envelope) error
