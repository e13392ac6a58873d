package filters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entityquery/internal/logger"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/models"
	"entityquery/pkg/query"
)

func newTestService(repo Repository, producer *recordingProducer) Service {
	return NewService(repo, logger.NopLogger(),
		WithEventPublisher(NewEventPublisher(producer, "filter_events")),
		WithMaxDepth(4),
	)
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	producer := &recordingProducer{}
	svc := newTestService(repo, producer)

	info := overheating(t)
	info.Filter = "  overheating  "
	created, err := svc.CreateFilter(ctx, alice, info)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "tenant-1", created.TenantID)
	assert.Equal(t, "overheating", created.Filter)

	keyFilters, err := created.KeyFilterSet()
	require.NoError(t, err)
	require.Len(t, keyFilters, 1)
	assert.Equal(t, query.EntityKey{Type: query.EntityKeyTypeTimeSeries, Key: "temperature"}, keyFilters[0].Key)

	info.Filter = "hot"
	updated, err := svc.UpdateFilter(ctx, alice, created.ID, info)
	require.NoError(t, err)
	assert.Equal(t, "hot", updated.Filter)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	listed, err := svc.ListFilters(ctx, alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "hot", listed[0].Filter)

	require.NoError(t, svc.DeleteFilter(ctx, alice, created.ID))
	_, err = svc.GetFilter(ctx, alice, created.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	events := producer.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, []string{models.EventTypeFilterCreated, models.EventTypeFilterUpdated, models.EventTypeFilterDeleted},
		[]string{events[0].EventType, events[1].EventType, events[2].EventType})
	for _, event := range events {
		assert.Equal(t, created.ID, event.FilterID)
		assert.Equal(t, "tenant-1", event.TenantID)
		assert.Equal(t, "alice", event.ChangedBy)
	}
	assert.Equal(t, []string{"filter_events", "filter_events", "filter_events"}, producer.topics)
}

func TestService_RejectsInvalidFilters(t *testing.T) {
	tooDeep := query.ComplexFilterPredicate{Operation: query.ComplexOperationAnd, Predicates: []query.KeyFilterPredicate{
		query.NumericFilterPredicate{Operation: query.NumericOperationLess, Value: query.FilterPredicateValue[float64]{DefaultValue: 1}},
	}}
	for i := 0; i < 5; i++ {
		tooDeep = query.ComplexFilterPredicate{Operation: query.ComplexOperationOr, Predicates: []query.KeyFilterPredicate{tooDeep}}
	}

	tests := []struct {
		name   string
		mutate func(*query.FilterInfo)
	}{
		{"blank name", func(info *query.FilterInfo) { info.Filter = "   " }},
		{"value type mismatch", func(info *query.FilterInfo) { info.KeyFilters[0].ValueType = query.EntityKeyValueTypeString }},
		{"no predicates", func(info *query.FilterInfo) { info.KeyFilters[0].Predicates = nil }},
		{"nesting too deep", func(info *query.FilterInfo) {
			info.KeyFilters[0].Predicates[0].KeyFilterPredicate = tooDeep
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			producer := &recordingProducer{}
			svc := newTestService(repo, producer)

			info := overheating(t)
			tt.mutate(&info)

			_, err := svc.CreateFilter(context.Background(), alice, info)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsConfiguration(err))
			assert.Equal(t, 400, pkgerrors.ToHTTPStatus(err))
			assert.Empty(t, repo.filters)
			assert.Empty(t, producer.messages)
		})
	}
}

func TestService_DuplicateName(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &recordingProducer{})

	_, err := svc.CreateFilter(context.Background(), alice, overheating(t))
	require.NoError(t, err)
	_, err = svc.CreateFilter(context.Background(), alice, overheating(t))
	assert.True(t, pkgerrors.IsConflict(err))

	_, err = svc.CreateFilter(context.Background(), eve, overheating(t))
	assert.NoError(t, err, "names are unique per tenant")
}

func TestService_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository(), &recordingProducer{})

	created, err := svc.CreateFilter(ctx, alice, overheating(t))
	require.NoError(t, err)

	_, err = svc.GetFilter(ctx, eve, created.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = svc.UpdateFilter(ctx, eve, created.ID, overheating(t))
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.True(t, pkgerrors.IsNotFound(svc.DeleteFilter(ctx, eve, created.ID)))

	listed, err := svc.ListFilters(ctx, eve)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestService_CacheInvalidatedByEvents(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	svc := newTestService(repo, &recordingProducer{})

	created, err := svc.CreateFilter(ctx, alice, overheating(t))
	require.NoError(t, err)

	_, err = svc.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.getCount(), "served from cache")

	// Another replica renames the filter and announces it.
	repo.mu.Lock()
	stored := repo.filters[created.ID]
	stored.Filter = "renamed elsewhere"
	repo.filters[created.ID] = stored
	repo.mu.Unlock()

	msg, err := models.NewMessageEnvelopeBuilder().
		WithSource("query-service").
		WithPayload(models.FilterEvent{EventType: models.EventTypeFilterUpdated, FilterID: created.ID, TenantID: "tenant-1"}).
		Build()
	require.NoError(t, err)
	require.NoError(t, svc.HandleFilterEvent(ctx, *msg))

	reloaded, err := svc.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed elsewhere", reloaded.Filter)
	assert.Equal(t, 1, repo.getCount())
}

func TestService_ReplicasSharingBrokerSeeEachOthersUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	bus := &sharedBroker{}
	replicaA := NewService(repo, logger.NopLogger(), WithEventPublisher(NewEventPublisher(bus, "filter_events")))
	replicaB := NewService(repo, logger.NopLogger(), WithEventPublisher(NewEventPublisher(bus, "filter_events")))
	bus.subscribe(replicaA)
	bus.subscribe(replicaB)

	created, err := replicaA.CreateFilter(ctx, alice, overheating(t))
	require.NoError(t, err)

	// B loads and caches the filter.
	_, err = replicaB.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	_, err = replicaB.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.getCount())

	info := overheating(t)
	info.Filter = "renamed on A"
	_, err = replicaA.UpdateFilter(ctx, alice, created.ID, info)
	require.NoError(t, err)

	got, err := replicaB.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed on A", got.Filter)

	require.NoError(t, replicaA.DeleteFilter(ctx, alice, created.ID))
	_, err = replicaB.GetFilter(ctx, alice, created.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_CacheEntriesExpire(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	// Events are lost, so only the TTL bounds staleness.
	svc := NewService(repo, logger.NopLogger(),
		WithEventPublisher(NewEventPublisher(&recordingProducer{err: errors.New("broker down")}, "filter_events")),
		WithCacheTTL(30*time.Second),
	).(*service)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	created, err := svc.CreateFilter(ctx, alice, overheating(t))
	require.NoError(t, err)

	repo.mu.Lock()
	stored := repo.filters[created.ID]
	stored.Filter = "renamed elsewhere"
	repo.filters[created.ID] = stored
	repo.mu.Unlock()

	tests := []struct {
		name     string
		advance  time.Duration
		wantName string
		wantGets int
	}{
		{name: "fresh entry served from cache", advance: 29 * time.Second, wantName: "overheating", wantGets: 0},
		{name: "expired entry reloaded", advance: time.Second, wantName: "renamed elsewhere", wantGets: 1},
		{name: "reloaded entry cached again", advance: 10 * time.Second, wantName: "renamed elsewhere", wantGets: 1},
	}
	for _, tt := range tests {
		clock = clock.Add(tt.advance)
		got, err := svc.GetFilter(ctx, alice, created.ID)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.wantName, got.Filter, tt.name)
		assert.Equal(t, tt.wantGets, repo.getCount(), tt.name)
	}
}

func TestWithCacheTTL_NonPositiveKeepsDefault(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		svc := NewService(newMemoryRepository(), logger.NopLogger(), WithCacheTTL(ttl)).(*service)
		assert.Equal(t, DefaultCacheTTL, svc.cacheTTL)
	}
}

func TestService_CachedCopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepository(), &recordingProducer{})

	created, err := svc.CreateFilter(ctx, alice, overheating(t))
	require.NoError(t, err)
	created.KeyFilters[0] = query.KeyFilterInfo{}

	got, err := svc.GetFilter(ctx, alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "temperature", got.KeyFilters[0].Key.Key)
}

func TestService_HandleMalformedEvent(t *testing.T) {
	svc := newTestService(newMemoryRepository(), &recordingProducer{})

	err := svc.HandleFilterEvent(context.Background(), models.MessageEnvelope{ID: "m-1", Payload: []byte(`{"event_type":"filter_renamed","filter_id":"f","tenant_id":"t"}`)})
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.False(t, appErr.IsRetryable())
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	svc := newTestService(newMemoryRepository(), producer)

	created, err := svc.CreateFilter(context.Background(), alice, overheating(t))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}
