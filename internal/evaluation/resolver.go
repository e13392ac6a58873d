package evaluation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"entityquery/internal/constants"
	"entityquery/internal/logger"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

// Principal identifies the user a query runs for. Empty ids and the null
// UUID both mean "absent".
type Principal struct {
	TenantID   string
	CustomerID string
	UserID     string
}

// Owner returns the entity a dynamic value of source reads its attribute
// from.
func (p Principal) Owner(source query.DynamicValueSourceType) (query.EntityID, bool) {
	var entityType, id string
	switch source {
	case query.DynamicValueSourceCurrentTenant:
		entityType, id = constants.EntityTypeTenant, p.TenantID
	case query.DynamicValueSourceCurrentCustomer:
		entityType, id = constants.EntityTypeCustomer, p.CustomerID
	case query.DynamicValueSourceCurrentUser:
		entityType, id = constants.EntityTypeUser, p.UserID
	default:
		return query.EntityID{}, false
	}
	if id == "" || id == constants.NullUUID {
		return query.EntityID{}, false
	}
	return query.EntityID{EntityType: entityType, ID: id}, true
}

// AttributeLookup reads a single attribute of an entity. A missing attribute
// is reported with found=false and a nil error.
type AttributeLookup interface {
	GetAttribute(ctx context.Context, owner query.EntityID, key string) (value any, found bool, err error)
}

type Resolution struct {
	Value any
	Found bool
}

type Resolver struct {
	lookup         AttributeLookup
	onStorageError string
	timeout        time.Duration
	logger         logger.Logger
}

type ResolverOption func(*Resolver)

// WithStorageErrorMode selects how lookup failures surface: "fail" returns a
// retryable StorageUnavailable error, "unresolved" logs the failure and
// treats the value as missing.
func WithStorageErrorMode(mode string) ResolverOption {
	return func(r *Resolver) {
		r.onStorageError = mode
	}
}

func WithResolveTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

func NewResolver(lookup AttributeLookup, log logger.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup:         lookup,
		onStorageError: constants.OnStorageErrorFail,
		logger:         log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the attribute named by dv on the principal's tenant,
// customer or user. An absent owner or attribute is a miss, not an error.
func (r *Resolver) Resolve(ctx context.Context, principal Principal, dv query.DynamicValue) (Resolution, error) {
	source := string(dv.SourceType)

	owner, ok := principal.Owner(dv.SourceType)
	if !ok {
		metrics.IncDynamicValueResolution(source, "no_owner")
		return Resolution{}, nil
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	value, found, err := r.lookup.GetAttribute(lookupCtx, owner, dv.SourceAttribute)
	if err != nil {
		metrics.IncDynamicValueResolution(source, "storage_error")
		if r.onStorageError == constants.OnStorageErrorUnresolved {
			r.logger.WarnwCtx(ctx, "Attribute lookup failed, falling back to default value",
				"owner", owner.String(),
				"attribute", dv.SourceAttribute,
				"error", err,
			)
			return Resolution{}, nil
		}
		return Resolution{}, pkgerrors.StorageUnavailable(err).
			WithDetail("owner", owner.String()).
			WithDetail("attribute", dv.SourceAttribute)
	}

	if !found {
		metrics.IncDynamicValueResolution(source, "miss")
		return Resolution{}, nil
	}

	metrics.IncDynamicValueResolution(source, "resolved")
	return Resolution{Value: value, Found: true}, nil
}

// resolutionCache memoises resolutions for one principal so each distinct
// dynamic value is looked up at most once per batch. Only hits and misses are
// kept; a failed lookup is retried by the next entity that needs the value.
type resolutionCache struct {
	mu      sync.Mutex
	entries map[query.DynamicValue]Resolution
}

func newResolutionCache() *resolutionCache {
	return &resolutionCache{entries: make(map[query.DynamicValue]Resolution)}
}

func (c *resolutionCache) get(dv query.DynamicValue) (Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resolution, ok := c.entries[dv]
	return resolution, ok
}

func (c *resolutionCache) put(dv query.DynamicValue, resolution Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dv] = resolution
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumber(t)
	}
	return 0, false
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return parseBool(t)
	}
	return false, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
