package attributes

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"entityquery/internal/constants"
	"entityquery/internal/logger"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

// CachedStore is a read-through redis cache in front of another store.
// Redis failures are logged and the request falls through to the store.
type CachedStore struct {
	next   Store
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, client redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = constants.DefaultTTLSeconds * time.Second
	}
	return &CachedStore{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(owner query.EntityID, key string) string {
	return constants.CacheKeyPrefixAttribute + owner.String() + ":" + key
}

func (s *CachedStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	if len(keys) == 0 {
		return map[string]any{}, nil
	}

	result := make(map[string]any, len(keys))
	missing := keys

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = cacheKey(owner, key)
	}

	cached, err := s.client.MGet(ctx, cacheKeys...).Result()
	if err != nil {
		s.logger.WarnwCtx(ctx, "Attribute cache read failed", "owner", owner.String(), "error", err)
		metrics.IncAttributeCache("error")
	} else {
		missing = nil
		for i, entry := range cached {
			raw, ok := entry.(string)
			if !ok {
				missing = append(missing, keys[i])
				metrics.IncAttributeCache("miss")
				continue
			}
			var value any
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				missing = append(missing, keys[i])
				metrics.IncAttributeCache("miss")
				continue
			}
			result[keys[i]] = value
			metrics.IncAttributeCache("hit")
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := s.next.GetAttributes(ctx, owner, missing)
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	for key, value := range loaded {
		result[key] = value
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		pipe.Set(ctx, cacheKey(owner, key), raw, s.ttl)
	}
	if len(loaded) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			s.logger.WarnwCtx(ctx, "Attribute cache write failed", "owner", owner.String(), "error", err)
		}
	}
	return result, nil
}

// PutAttribute writes through to the underlying store and drops the cached
// entry.
func (s *CachedStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	writer, ok := s.next.(Writer)
	if !ok {
		return errReadOnly
	}
	if err := writer.PutAttribute(ctx, owner, key, value); err != nil {
		return err
	}
	return s.Invalidate(ctx, owner, key)
}

func (s *CachedStore) Invalidate(ctx context.Context, owner query.EntityID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = cacheKey(owner, key)
	}
	return s.client.Del(ctx, cacheKeys...).Err()
}
