package config

import (
	"errors"
	"fmt"
	"strings"

	"wacrm/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errs = append(errs, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errs = append(errs, err)
	}

	if err := validateSegmentation(cfg.Segmentation); err != nil {
		errs = append(errs, err)
	}

	if err := validateAutomation(cfg.Automation); err != nil {
		errs = append(errs, err)
	}

	if err := validateRateLimit(cfg.API.RateLimit); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

// validateBroker accepts an empty type: the API runs without event publishing.
func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
			return &ValidationError{
				Field:   "database.redis.port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
			}
		}
	}

	if cfg.MongoDB.URI != "" && cfg.MongoDB.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s", cfg.SSLMode),
		}
	}

	return nil
}

func validateFallback(field, value string) error {
	switch value {
	case "", constants.FallbackAllow, constants.FallbackDeny:
		return nil
	default:
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be %q or %q, got %q", constants.FallbackAllow, constants.FallbackDeny, value),
		}
	}
}

func validateSegmentation(cfg SegmentationConfig) error {
	if err := validateFallback("segmentation.membership.on_error", cfg.Membership.OnError); err != nil {
		return err
	}

	if cfg.Membership.LookupTimeout < 0 {
		return &ValidationError{
			Field:   "segmentation.membership.lookup_timeout",
			Message: "lookup timeout must be non-negative",
		}
	}

	return nil
}

func validateAutomation(cfg AutomationConfig) error {
	if err := validateFallback("automation.dedup.on_redis_error", cfg.Dedup.OnRedisError); err != nil {
		return err
	}

	if cfg.Dedup.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "automation.dedup.ttl_seconds",
			Message: "ttl must be non-negative",
		}
	}

	if cfg.Reload.IntervalSeconds < 0 {
		return &ValidationError{
			Field:   "automation.reload.interval_seconds",
			Message: "reload interval must be non-negative",
		}
	}

	if cfg.Reload.JitterMaxMilliseconds < 0 {
		return &ValidationError{
			Field:   "automation.reload.jitter_max_milliseconds",
			Message: "jitter must be non-negative",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "api.rate_limit.rps",
			Message: "rps must be positive when rate limiting is enabled",
		}
	}

	if cfg.Burst <= 0 {
		return &ValidationError{
			Field:   "api.rate_limit.burst",
			Message: "burst must be positive when rate limiting is enabled",
		}
	}

	return nil
}
