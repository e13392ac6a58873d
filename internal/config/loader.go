package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"entityquery/internal/constants"
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

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 10*time.Second)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("broker.type", constants.BrokerTypeNone)
	viper.SetDefault("broker.kafka.filter_events_topic", constants.DefaultFilterEventsTopic)
	viper.SetDefault("broker.kafka.group_per_replica", true)
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("evaluation.max_depth", constants.DefaultMaxPredicateDepth)
	viper.SetDefault("evaluation.missing_value_policy", constants.MissingValueNegationMatches)
	viper.SetDefault("evaluation.on_storage_error", constants.OnStorageErrorFail)
	viper.SetDefault("evaluation.max_concurrency", 8)
	viper.SetDefault("evaluation.resolve_timeout", 2*time.Second)

	viper.SetDefault("attributes.store", constants.AttributeStoreMemory)
	viper.SetDefault("attributes.cache.ttl_seconds", constants.DefaultTTLSeconds)
	viper.SetDefault("attributes.loader.wait", 2*time.Millisecond)
	viper.SetDefault("attributes.loader.batch_capacity", 100)
	viper.SetDefault("attributes.loader.batch_timeout", 5*time.Second)
	viper.SetDefault("attributes.retry.max_attempts", 3)
	viper.SetDefault("attributes.retry.initial_interval", 50*time.Millisecond)
	viper.SetDefault("attributes.retry.max_interval", time.Second)
	viper.SetDefault("attributes.retry.multiplier", 2.0)

	viper.SetDefault("api.max_page_size", constants.MaxPageSize)
	viper.SetDefault("api.max_rows", constants.MaxRowsPerQuery)
	viper.SetDefault("api.saved_filter_cache_ttl", time.Minute)
	viper.SetDefault("api.rate_limit.rps", 50)
	viper.SetDefault("api.rate_limit.burst", 100)
	viper.SetDefault("api.rate_limit.cleanup_interval", 60)
	viper.SetDefault("api.rate_limit.max_age", 300)
}

func bindEnvVariables() {
	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.filter_events_topic", "BROKER_KAFKA_FILTER_EVENTS_TOPIC")
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
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("evaluation.missing_value_policy", "EVALUATION_MISSING_VALUE_POLICY")
	viper.BindEnv("evaluation.on_storage_error", "EVALUATION_ON_STORAGE_ERROR")
	viper.BindEnv("evaluation.concurrent_resolution", "EVALUATION_CONCURRENT_RESOLUTION")

	viper.BindEnv("attributes.store", "ATTRIBUTES_STORE")
	viper.BindEnv("attributes.cache.enabled", "ATTRIBUTES_CACHE_ENABLED")

	viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	viper.BindEnv("auth.issuer", "AUTH_ISSUER")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
