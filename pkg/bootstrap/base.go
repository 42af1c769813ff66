package bootstrap

import (
	"context"
	"fmt"

	"wacrm/internal/broker"
	"wacrm/internal/config"
	"wacrm/internal/logger"
)

type Base struct {
	Config      *config.Config
	Logger      logger.Logger
	Producer    broker.Producer
	consumers   []broker.Consumer
	serviceName string
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitBroker(serviceName string) error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	if named, ok := producer.(interface{ SetServiceName(string) }); ok && serviceName != "" {
		named.SetServiceName(serviceName)
	}

	b.Producer = producer
	b.serviceName = serviceName
	return nil
}

// NewConsumer creates a consumer that is closed together with the broker.
func (b *Base) NewConsumer() (broker.Consumer, error) {
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	if b.serviceName != "" {
		consumer.SetServiceName(b.serviceName)
	}
	b.consumers = append(b.consumers, consumer)
	return consumer, nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	for _, consumer := range b.consumers {
		if err := consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Infow("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Infow("Application exited successfully")
	return nil
}
