// Package attributes serves the tenant, customer and user attributes that
// dynamic filter values are resolved from.
package attributes

import (
	"context"
	"sort"
	"sync"

	"entityquery/pkg/query"
)

// Store reads attributes of one owner entity. Keys that the owner does not
// have are absent from the returned map.
type Store interface {
	GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error)
}

// Writer is implemented by stores that accept attribute updates.
type Writer interface {
	PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error
}

// Reader looks attributes up one at a time.
type Reader struct {
	store Store
}

func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

func (r *Reader) GetAttribute(ctx context.Context, owner query.EntityID, key string) (any, bool, error) {
	values, err := r.store.GetAttributes(ctx, owner, []string{key})
	if err != nil {
		return nil, false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// MemoryStore keeps attributes in process. Used by tests and by the
// "memory" store setting.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[query.EntityID]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[query.EntityID]map[string]any)}
}

func (s *MemoryStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]any, len(keys))
	attrs := s.values[owner]
	for _, key := range keys {
		if value, ok := attrs[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (s *MemoryStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs, ok := s.values[owner]
	if !ok {
		attrs = make(map[string]any)
		s.values[owner] = attrs
	}
	attrs[key] = value
	return nil
}

// Keys lists the attribute names stored for owner, sorted.
func (s *MemoryStore) Keys(owner query.EntityID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values[owner]))
	for key := range s.values[owner] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
