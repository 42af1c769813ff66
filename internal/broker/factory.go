package broker

import (
	"errors"
	"fmt"

	"wacrm/internal/config"
	"wacrm/internal/logger"
)

var errNoBrokers = errors.New("kafka brokers are not configured")

// NewProducer returns the producer for cfg.Type. Only kafka is supported.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if err := checkBroker(cfg); err != nil {
		return nil, err
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}

// NewConsumer returns a consumer for one topic; call it once per topic.
func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	if err := checkBroker(cfg); err != nil {
		return nil, err
	}
	return NewKafkaConsumer(cfg.Kafka, log), nil
}

func checkBroker(cfg config.BrokerConfig) error {
	if cfg.Type != "kafka" {
		return fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errNoBrokers
	}
	return nil
}
