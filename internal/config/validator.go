package config

import (
	"fmt"
	"strings"

	"entityquery/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateEvaluation(cfg.Evaluation); err != nil {
		errors = append(errors, err)
	}

	if err := validateAttributes(cfg.Attributes, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateAuth(cfg.Auth); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
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

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case constants.BrokerTypeNone, "":
		return nil
	case constants.BrokerTypeKafka:
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, none)", cfg.Type),
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

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.FilterEventsTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.filter_events_topic",
			Message: "filter events topic is required",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
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
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
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
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "database.redis.ttl_seconds",
			Message: "TTL must be non-negative",
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

// validateEvaluation leaves max_depth alone: a non-positive value selects
// the built-in limit.
func validateEvaluation(cfg EvaluationConfig) error {
	switch cfg.MissingValuePolicy {
	case constants.MissingValueNegationMatches, constants.MissingValueNeverMatches:
	default:
		return &ValidationError{
			Field:   "evaluation.missing_value_policy",
			Message: fmt.Sprintf("invalid missing_value_policy: %s (valid: negation_matches, never_matches)", cfg.MissingValuePolicy),
		}
	}

	switch cfg.OnStorageError {
	case constants.OnStorageErrorFail, constants.OnStorageErrorUnresolved:
	default:
		return &ValidationError{
			Field:   "evaluation.on_storage_error",
			Message: fmt.Sprintf("invalid on_storage_error: %s (valid: fail, unresolved)", cfg.OnStorageError),
		}
	}

	if cfg.ConcurrentResolution && cfg.MaxConcurrency < 1 {
		return &ValidationError{
			Field:   "evaluation.max_concurrency",
			Message: "max_concurrency must be positive when concurrent_resolution is enabled",
		}
	}

	return nil
}

func validateAttributes(cfg AttributesConfig, db DatabaseConfig) error {
	switch cfg.Store {
	case constants.AttributeStoreMemory:
	case constants.AttributeStorePostgres:
		if db.Postgres.Host == "" {
			return &ValidationError{
				Field:   "attributes.store",
				Message: "postgres attribute store requires database.postgres",
			}
		}
	case constants.AttributeStoreMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "attributes.store",
				Message: "mongodb attribute store requires database.mongodb",
			}
		}
	default:
		return &ValidationError{
			Field:   "attributes.store",
			Message: fmt.Sprintf("unknown attribute store: %s (supported: postgres, mongodb, memory)", cfg.Store),
		}
	}

	if cfg.Cache.Enabled && db.Redis.Host == "" {
		return &ValidationError{
			Field:   "attributes.cache.enabled",
			Message: "attribute cache requires database.redis",
		}
	}

	if cfg.Loader.Enabled && cfg.Loader.BatchCapacity < 0 {
		return &ValidationError{
			Field:   "attributes.loader.batch_capacity",
			Message: "batch_capacity must be non-negative",
		}
	}

	return validateRetry("attributes.retry", cfg.Retry)
}

func validateAuth(cfg AuthConfig) error {
	if cfg.Enabled && len(cfg.JWTSecret) < 16 {
		return &ValidationError{
			Field:   "auth.jwt_secret",
			Message: "jwt_secret must be at least 16 characters when auth is enabled",
		}
	}
	return nil
}
