package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Evaluation     EvaluationConfig     `mapstructure:"evaluation"`
	Attributes     AttributesConfig     `mapstructure:"attributes"`
	Auth           AuthConfig           `mapstructure:"auth"`
	API            APIConfig            `mapstructure:"api"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `mapstructure:"postgres"`
	Redis         RedisConfig    `mapstructure:"redis"`
	MongoDB       MongoDBConfig  `mapstructure:"mongodb"`
	RunMigrations bool           `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"` // "kafka" or "none"
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	// GroupPerReplica suffixes GroupID with a replica id so that every
	// replica receives every filter event.
	GroupPerReplica   bool        `mapstructure:"group_per_replica"`
	FilterEventsTopic string      `mapstructure:"filter_events_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type EvaluationConfig struct {
	MaxDepth             int           `mapstructure:"max_depth"`
	MissingValuePolicy   string        `mapstructure:"missing_value_policy"` // "negation_matches" or "never_matches"
	OnStorageError       string        `mapstructure:"on_storage_error"`     // "fail" or "unresolved"
	ConcurrentResolution bool          `mapstructure:"concurrent_resolution"`
	MaxConcurrency       int           `mapstructure:"max_concurrency"`
	ResolveTimeout       time.Duration `mapstructure:"resolve_timeout"`
}

type AttributesConfig struct {
	Store  string       `mapstructure:"store"` // "postgres", "mongodb" or "memory"
	Cache  CacheConfig  `mapstructure:"cache"`
	Loader LoaderConfig `mapstructure:"loader"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

type LoaderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Wait          time.Duration `mapstructure:"wait"`
	BatchCapacity int           `mapstructure:"batch_capacity"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type APIConfig struct {
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MaxPageSize int             `mapstructure:"max_page_size"`
	MaxRows     int             `mapstructure:"max_rows"`
	// SavedFilterCacheTTL bounds how long a replica serves a saved filter
	// without rereading it, even if a filter event is lost.
	SavedFilterCacheTTL time.Duration `mapstructure:"saved_filter_cache_ttl"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
