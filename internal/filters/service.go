package filters

import (
	"context"
	"strings"
	"sync"
	"time"

	"entityquery/internal/evaluation"
	"entityquery/internal/logger"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/logging"
	"entityquery/pkg/metrics"
	"entityquery/pkg/models"
	"entityquery/pkg/query"
)

type Service interface {
	CreateFilter(ctx context.Context, principal evaluation.Principal, info query.FilterInfo) (*SavedFilter, error)
	ListFilters(ctx context.Context, principal evaluation.Principal) ([]SavedFilter, error)
	GetFilter(ctx context.Context, principal evaluation.Principal, id string) (*SavedFilter, error)
	UpdateFilter(ctx context.Context, principal evaluation.Principal, id string, info query.FilterInfo) (*SavedFilter, error)
	DeleteFilter(ctx context.Context, principal evaluation.Principal, id string) error
	ValidateFilter(info query.FilterInfo) error
	// HandleFilterEvent applies a filter event from another replica to the
	// local cache.
	HandleFilterEvent(ctx context.Context, msg models.MessageEnvelope) error
}

type service struct {
	repo      Repository
	publisher *EventPublisher
	maxDepth  int
	logger    logger.Logger

	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// DefaultCacheTTL bounds how stale a cached filter can get when a filter
// event from another replica never arrives.
const DefaultCacheTTL = time.Minute

type cacheEntry struct {
	filter  *SavedFilter
	expires time.Time
}

type ServiceOption func(*service)

func WithEventPublisher(publisher *EventPublisher) ServiceOption {
	return func(s *service) {
		s.publisher = publisher
	}
}

// WithCacheTTL sets how long a loaded filter is served without rereading
// it. Non-positive values keep DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMaxDepth bounds COMPLEX nesting accepted at save time. Non-positive
// values keep the default.
func WithMaxDepth(maxDepth int) ServiceOption {
	return func(s *service) {
		if maxDepth > 0 {
			s.maxDepth = maxDepth
		}
	}
}

func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		maxDepth: query.DefaultMaxDepth,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
		logger:   log,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateFilter rejects a filter that evaluation would reject, so that a
// malformed filter fails when it is saved rather than when it is queried.
func (s *service) ValidateFilter(info query.FilterInfo) error {
	if err := info.Validate(s.maxDepth); err != nil {
		metrics.IncConfigurationError("save")
		return err
	}
	return nil
}

func (s *service) CreateFilter(ctx context.Context, principal evaluation.Principal, info query.FilterInfo) (*SavedFilter, error) {
	info.Filter = strings.TrimSpace(info.Filter)
	if err := s.ValidateFilter(info); err != nil {
		return nil, err
	}

	filter := &SavedFilter{TenantID: principal.TenantID, FilterInfo: info}
	if err := s.repo.Create(ctx, filter); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.store(filter)
	s.publish(ctx, models.EventTypeFilterCreated, filter, principal.UserID)
	return filter.clone(), nil
}

func (s *service) ListFilters(ctx context.Context, principal evaluation.Principal) ([]SavedFilter, error) {
	filters, err := s.repo.List(ctx, principal.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return filters, nil
}

func (s *service) GetFilter(ctx context.Context, principal evaluation.Principal, id string) (*SavedFilter, error) {
	if filter, ok := s.cached(principal.TenantID, id); ok {
		return filter, nil
	}

	filter, err := s.repo.Get(ctx, principal.TenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.store(filter)
	return filter.clone(), nil
}

func (s *service) UpdateFilter(ctx context.Context, principal evaluation.Principal, id string, info query.FilterInfo) (*SavedFilter, error) {
	info.Filter = strings.TrimSpace(info.Filter)
	if err := s.ValidateFilter(info); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, principal.TenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	filter := &SavedFilter{
		ID:         id,
		TenantID:   principal.TenantID,
		FilterInfo: info,
		CreatedAt:  existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, filter); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.store(filter)
	s.publish(ctx, models.EventTypeFilterUpdated, filter, principal.UserID)
	return filter.clone(), nil
}

func (s *service) DeleteFilter(ctx context.Context, principal evaluation.Principal, id string) error {
	if err := s.repo.Delete(ctx, principal.TenantID, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.evict(id)
	s.publish(ctx, models.EventTypeFilterDeleted, &SavedFilter{ID: id, TenantID: principal.TenantID}, principal.UserID)
	return nil
}

func (s *service) HandleFilterEvent(ctx context.Context, msg models.MessageEnvelope) error {
	event, err := models.DecodeFilterEvent(msg)
	if err != nil {
		// A malformed event will not get better on retry.
		return pkgerrors.ErrValidation.WithCause(err).AsFatal()
	}

	metrics.IncFilterEvent(event.EventType, "consumed")
	s.evict(event.FilterID)
	s.logger.DebugwCtx(logging.WithFilterID(ctx, event.FilterID), "Saved filter cache invalidated",
		"event_type", event.EventType,
		"tenant_id", event.TenantID,
	)
	return nil
}

func (s *service) publish(ctx context.Context, eventType string, filter *SavedFilter, changedBy string) {
	if err := s.publisher.Publish(ctx, eventType, filter, changedBy); err != nil {
		s.logger.WarnwCtx(logging.WithFilterID(ctx, filter.ID), "Failed to publish filter event",
			"event_type", eventType,
			"error", err,
		)
	}
}

func (s *service) cached(tenantID, id string) (*SavedFilter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[id]
	if !ok || entry.filter.TenantID != tenantID || !s.now().Before(entry.expires) {
		return nil, false
	}
	return entry.filter.clone(), true
}

func (s *service) store(filter *SavedFilter) {
	s.mu.Lock()
	s.cache[filter.ID] = cacheEntry{filter: filter.clone(), expires: s.now().Add(s.cacheTTL)}
	size := len(s.cache)
	s.mu.Unlock()
	metrics.SetSavedFiltersCached(size)
}

func (s *service) evict(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	size := len(s.cache)
	s.mu.Unlock()
	metrics.SetSavedFiltersCached(size)
}
