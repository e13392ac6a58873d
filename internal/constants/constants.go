package constants

import "time"

const (
	ServiceName = "query-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	BrokerTypeKafka = "kafka"
	BrokerTypeNone  = "none"
)

const (
	DefaultFilterEventsTopic = "filter_events"
	DefaultMongoDBName       = "entityquery"
)

const (
	CacheKeyPrefixAttribute = "attr:"
	DefaultTTLSeconds       = 300
)

const (
	AttributeStorePostgres = "postgres"
	AttributeStoreMongoDB  = "mongodb"
	AttributeStoreMemory   = "memory"
)

const (
	DefaultMaxPredicateDepth = 32
)

const (
	MissingValueNegationMatches = "negation_matches"
	MissingValueNeverMatches    = "never_matches"
)

const (
	OnStorageErrorFail       = "fail"
	OnStorageErrorUnresolved = "unresolved"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
	MaxRowsPerQuery = 10000
)

// NullUUID is the id ThingsBoard uses for "no customer" and similar absent
// references.
const NullUUID = "13814000-1dd2-11b2-8080-808080808080"

const (
	EntityTypeTenant   = "TENANT"
	EntityTypeCustomer = "CUSTOMER"
	EntityTypeUser     = "USER"
)
