package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"wacrm/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 15)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("database.mongodb.database", constants.DefaultMongoDBName)

	viper.SetDefault("broker.kafka.contact_events_topic", constants.DefaultContactEventsTopic)
	viper.SetDefault("broker.kafka.segment_entries_topic", constants.DefaultSegmentEntriesTopic)
	viper.SetDefault("broker.kafka.config_update_topic", constants.DefaultConfigEventsTopic)
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("segmentation.membership.on_error", constants.FallbackAllow)
	viper.SetDefault("segmentation.membership.lookup_timeout", constants.DefaultGroupLookupTimeout)

	viper.SetDefault("automation.reload.interval_seconds", int(constants.DefaultSegmentReloadInterval.Seconds()))
	viper.SetDefault("automation.reload.jitter_max_milliseconds", 1000)
	viper.SetDefault("automation.dedup.ttl_seconds", int(constants.DefaultSegmentEntryTTL.Seconds()))
	viper.SetDefault("automation.dedup.on_redis_error", constants.FallbackAllow)
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.contact_events_topic", "BROKER_KAFKA_CONTACT_EVENTS_TOPIC")
	viper.BindEnv("broker.kafka.segment_entries_topic", "BROKER_KAFKA_SEGMENT_ENTRIES_TOPIC")
	viper.BindEnv("broker.kafka.config_update_topic", "BROKER_KAFKA_CONFIG_UPDATE_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("segmentation.strict", "SEGMENTATION_STRICT")
	viper.BindEnv("segmentation.membership.on_error", "SEGMENTATION_MEMBERSHIP_ON_ERROR")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// applyEnvOverrides handles values viper cannot split on its own.
func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		cfg.Broker.Kafka.Brokers = splitList(brokersEnv)
	}

	if origins := viper.GetString("API_CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.CORS.AllowedOrigins = splitList(origins)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
