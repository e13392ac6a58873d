package attributes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"

	"entityquery/internal/config"
	"entityquery/internal/constants"
	"entityquery/internal/logger"
	"entityquery/pkg/circuitbreaker"
	"entityquery/pkg/query"
	"entityquery/pkg/retry"
)

// Lookup reads one attribute of an owner entity.
type Lookup interface {
	GetAttribute(ctx context.Context, owner query.EntityID, key string) (any, bool, error)
}

// Clients carries the connections the configured store may need.
type Clients struct {
	Postgres *sql.DB
	Mongo    *mongo.Database
	Redis    *redis.Client
}

// NewStore builds the configured base store wrapped with retries, the
// circuit breaker and, when enabled, the redis cache.
func NewStore(cfg *config.Config, clients Clients, log logger.Logger) (Store, error) {
	var (
		base Store
		name = cfg.Attributes.Store
	)
	switch name {
	case constants.AttributeStorePostgres:
		if clients.Postgres == nil {
			return nil, fmt.Errorf("attribute store %q requires a postgres connection", name)
		}
		base = NewPostgresStore(clients.Postgres)
	case constants.AttributeStoreMongoDB:
		if clients.Mongo == nil {
			return nil, fmt.Errorf("attribute store %q requires a mongodb connection", name)
		}
		base = NewMongoStore(clients.Mongo)
	case constants.AttributeStoreMemory, "":
		base = NewMemoryStore()
		name = constants.AttributeStoreMemory
	default:
		return nil, fmt.Errorf("unknown attribute store %q", name)
	}

	var store Store = NewRetryingStore(base, retry.PolicyFromConfig(cfg.Attributes.Retry), log)

	if cfg.CircuitBreaker.Enabled {
		store = NewCircuitBreakerStore(store, name, breakerConfig(name, cfg.CircuitBreaker, log))
	}

	if cfg.Attributes.Cache.Enabled {
		if clients.Redis == nil {
			return nil, fmt.Errorf("attribute cache requires a redis connection")
		}
		ttl := time.Duration(cfg.Attributes.Cache.TTLSeconds) * time.Second
		store = NewCachedStore(store, clients.Redis, ttl, log)
	}

	return store, nil
}

// NewLookup returns the batching loader when enabled, otherwise a plain
// reader over store.
func NewLookup(cfg config.LoaderConfig, store Store) Lookup {
	if cfg.Enabled {
		return NewLoader(store, LoaderOptions{
			Wait:          cfg.Wait,
			BatchCapacity: cfg.BatchCapacity,
			BatchTimeout:  cfg.BatchTimeout,
		})
	}
	return NewReader(store)
}

func breakerConfig(name string, cfg config.CircuitBreakerConfig, log logger.Logger) circuitbreaker.Config {
	cbCfg := circuitbreaker.DefaultConfig("attributes-" + name)
	if cfg.MaxRequests > 0 {
		cbCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbCfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		cbCfg.FailureRatio = cfg.FailureRatio
	}
	if cfg.MinRequests > 0 {
		cbCfg.MinRequests = cfg.MinRequests
	}
	cbCfg.OnStateChange = func(breaker string, from, to gobreaker.State) {
		log.Warnw("Attribute store circuit breaker changed state",
			"breaker", breaker,
			"from", from.String(),
			"to", to.String(),
		)
	}
	return cbCfg
}
