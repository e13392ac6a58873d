package filters

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"entityquery/internal/evaluation"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/models"
	"entityquery/pkg/query"
)

var (
	alice = evaluation.Principal{TenantID: "tenant-1", CustomerID: "customer-1", UserID: "alice"}
	eve   = evaluation.Principal{TenantID: "tenant-2", UserID: "eve"}
)

const overheatingJSON = `{
  "filter": "overheating",
  "editable": true,
  "keyFilters": [{
    "key": {"type": "TIME_SERIES", "key": "temperature"},
    "valueType": "NUMERIC",
    "predicates": [{
      "keyFilterPredicate": {
        "type": "NUMERIC",
        "operation": "GREATER",
        "value": {"defaultValue": 25, "dynamicValue": {"sourceType": "CURRENT_TENANT", "sourceAttribute": "maxTemperature"}}
      },
      "userInfo": {"editable": true, "label": "max temperature", "autogeneratedLabel": false}
    }]
  }]
}`

func overheating(t *testing.T) query.FilterInfo {
	t.Helper()
	var info query.FilterInfo
	require.NoError(t, json.Unmarshal([]byte(overheatingJSON), &info))
	return info
}

// memoryRepository mimics PostgresRepository's tenant scoping and error
// codes.
type memoryRepository struct {
	mu      sync.Mutex
	filters map[string]SavedFilter
	gets    int
	nextID  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{filters: make(map[string]SavedFilter)}
}

func (r *memoryRepository) Create(_ context.Context, filter *SavedFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.filters {
		if existing.TenantID == filter.TenantID && existing.Filter == filter.Filter {
			return pkgerrors.ErrConflict.WithMessage("filter with name '%s' already exists", filter.Filter)
		}
	}
	r.nextID++
	filter.ID = "f-" + string(rune('0'+r.nextID))
	filter.CreatedAt = time.Now().UTC()
	filter.UpdatedAt = filter.CreatedAt
	r.filters[filter.ID] = *filter.clone()
	return nil
}

func (r *memoryRepository) Get(_ context.Context, tenantID, id string) (*SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	filter, ok := r.filters[id]
	if !ok || filter.TenantID != tenantID {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return filter.clone(), nil
}

func (r *memoryRepository) List(_ context.Context, tenantID string) ([]SavedFilter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []SavedFilter{}
	for _, filter := range r.filters {
		if filter.TenantID == tenantID {
			out = append(out, *filter.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filter < out[j].Filter })
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, filter *SavedFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.filters[filter.ID]
	if !ok || existing.TenantID != filter.TenantID {
		return pkgerrors.ErrNotFound.WithDetail("id", filter.ID)
	}
	filter.UpdatedAt = time.Now().UTC()
	r.filters[filter.ID] = *filter.clone()
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.filters[id]
	if !ok || existing.TenantID != tenantID {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	delete(r.filters, id)
	return nil
}

func (r *memoryRepository) getCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

type recordingProducer struct {
	mu       sync.Mutex
	topics   []string
	messages []models.MessageEnvelope
	err      error
}

func (p *recordingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) events(t *testing.T) []models.FilterEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]models.FilterEvent, 0, len(p.messages))
	for _, msg := range p.messages {
		event, err := models.DecodeFilterEvent(msg)
		require.NoError(t, err)
		events = append(events, event)
	}
	return events
}

// sharedBroker delivers every published envelope to each subscribed replica,
// the way per-replica consumer groups each receive the whole topic.
type sharedBroker struct {
	mu       sync.Mutex
	handlers []func(context.Context, models.MessageEnvelope) error
}

func (b *sharedBroker) subscribe(svc Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, svc.HandleFilterEvent)
}

func (b *sharedBroker) Publish(ctx context.Context, _ string, msg models.MessageEnvelope) error {
	b.mu.Lock()
	handlers := append([]func(context.Context, models.MessageEnvelope) error(nil), b.handlers...)
	b.mu.Unlock()
	for _, handle := range handlers {
		if err := handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *sharedBroker) Close() error { return nil }
