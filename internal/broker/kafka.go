package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"wacrm/internal/config"
	"wacrm/internal/constants"
	"wacrm/internal/logger"
	"wacrm/pkg/errors"
	"wacrm/pkg/logging"
	"wacrm/pkg/metrics"
	"wacrm/pkg/models"
	"wacrm/pkg/retry"
	"wacrm/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer      messageWriter
	logger      logger.Logger
	serviceName string
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: w, logger: log, serviceName: "unknown"}
}

// Publish writes msg keyed by its partition key, so every event of one
// contact lands on the same partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.Envelope) error {
	if msg.Metadata.TraceID == "" {
		msg.Metadata.TraceID = tracing.TraceID(ctx)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(partitionKey(msg)),
			Value:   body,
			Headers: tracing.InjectTraceContext(ctx, nil),
			Time:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, topic, "out", len(body))
	metrics.ObserveKafkaWriteDuration(p.serviceName, topic, time.Since(start))
	return nil
}

func (p *KafkaProducer) SetServiceName(name string) {
	p.serviceName = name
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func partitionKey(msg models.Envelope) string {
	if id, ok := msg.Payload["contactId"].(string); ok && id != "" {
		return id
	}
	if id, ok := msg.Payload["_id"].(string); ok && id != "" {
		return id
	}
	if id, ok := msg.Payload["id"].(string); ok && id != "" {
		return id
	}
	return msg.ID
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      messageReader
	newReader   func(topic string) messageReader
	logger      logger.Logger
	dlqProducer Producer
	policy      retry.Policy
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		policy:      retry.FromConfig(cfg.Retry),
		serviceName: "unknown",
	}
	consumer.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		})
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
	if p, ok := c.dlqProducer.(*KafkaProducer); ok {
		p.SetServiceName(name)
	}
}

// Consume blocks until ctx is cancelled. Every message is committed once it
// has been handled, parked on the DLQ, or found undecodable.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = c.newReader(topic)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", topic)

		for {
			start := time.Now()
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}
			metrics.IncKafkaMessagesRead(c.serviceName, topic)
			metrics.ObserveKafkaReadDuration(c.serviceName, topic, time.Since(start))
			metrics.ObserveKafkaMessageSize(c.serviceName, topic, "in", len(m.Value))

			c.handleMessage(ctx, topic, m, handler)

			if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, topic string, m kafka.Message, handler HandlerFunc) {
	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume "+topic, m.Headers)
	defer span.End()
	msgCtx = logging.WithServiceName(msgCtx, c.serviceName)

	var envelope models.Envelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to unmarshal message, skipping",
			"error", err,
			"topic", topic,
			"offset", m.Offset,
		)
		return
	}

	if envelope.Metadata.TraceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, envelope.Metadata.TraceID)
	}
	msgCtx = logging.WithEventID(msgCtx, envelope.ID)
	if envelope.Metadata.OwnerID != "" {
		msgCtx = logging.WithScope(msgCtx, envelope.Metadata.OwnerID, envelope.Metadata.CompanyID)
	}

	var err error
	if vErr := models.ValidateEnvelope(&envelope); vErr != nil {
		err = retry.NewFatalError(vErr)
	} else {
		err = c.processMessageWithRetry(msgCtx, envelope, handler, topic)
	}
	if err == nil || ctx.Err() != nil {
		return
	}

	c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
		"error", err,
		"topic", topic,
	)
	if c.dlqProducer == nil || c.cfg.DLQTopic == "" {
		c.logger.WarnwCtx(msgCtx, "No DLQ configured, committing message to avoid blocking", "topic", topic)
		return
	}
	if dlqErr := c.sendToDLQ(msgCtx, envelope, err, topic); dlqErr != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
			"error", dlqErr,
			"topic", topic,
		)
	}
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, envelope models.Envelope, handler HandlerFunc, topic string) error {
	return retry.RetryWithCallback(ctx, c.policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, envelope)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, envelope models.Envelope, originalErr error, sourceTopic string) error {
	reason := "max_retries_exceeded"
	if retry.IsFatal(originalErr) {
		reason = "fatal_error"
	}

	envelope.Metadata.DeadLetter = &models.DeadLetterInfo{
		Reason:      originalErr.Error(),
		SourceTopic: sourceTopic,
		FailedAt:    time.Now().UTC(),
	}

	if err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, envelope); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, reason).Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)
	return nil
}
