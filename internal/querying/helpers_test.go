package querying

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"entityquery/internal/attributes"
	"entityquery/internal/evaluation"
	"entityquery/internal/filters"
	"entityquery/internal/logger"
	"entityquery/pkg/cel"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/models"
	"entityquery/pkg/query"
)

var (
	alice       = evaluation.Principal{TenantID: "tenant-1", CustomerID: "customer-1", UserID: "alice"}
	tenantOwner = query.EntityID{EntityType: "TENANT", ID: "tenant-1"}

	temperatureKey = query.EntityKey{Type: query.EntityKeyTypeTimeSeries, Key: "temperature"}
	nameKey        = query.EntityKey{Type: query.EntityKeyTypeEntityField, Key: "name"}
)

// stubFilters serves saved filters from a map.
type stubFilters struct {
	filters.Service
	saved map[string]*filters.SavedFilter
}

func (s *stubFilters) GetFilter(_ context.Context, principal evaluation.Principal, id string) (*filters.SavedFilter, error) {
	filter, ok := s.saved[id]
	if !ok || filter.TenantID != principal.TenantID {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return filter, nil
}

func (s *stubFilters) HandleFilterEvent(context.Context, models.MessageEnvelope) error { return nil }

type failingStore struct{}

func (failingStore) GetAttributes(context.Context, query.EntityID, []string) (map[string]any, error) {
	return nil, errors.New("connection refused")
}

func device(id, name, temperature string) query.EntityData {
	latest := query.LatestValues{}
	latest.Set(query.EntityKeyTypeEntityField, "name", query.TsValue{Ts: 1, Value: name})
	if temperature != "" {
		latest.Set(query.EntityKeyTypeTimeSeries, "temperature", query.TsValue{Ts: 1, Value: temperature})
	}
	return query.EntityData{EntityID: query.EntityID{EntityType: "DEVICE", ID: id}, Latest: latest}
}

func fleet() []query.EntityData {
	return []query.EntityData{
		device("d1", "device-1", "30"),
		device("d2", "device-2", "20"),
		device("d3", "sensor-3", "40"),
		device("d4", "device-4", ""),
	}
}

// aboveTenantMax matches temperature > the tenant's maxTemperature
// attribute, 100 when the attribute is absent.
func aboveTenantMax() query.KeyFilter {
	return query.KeyFilter{
		Key:       temperatureKey,
		ValueType: query.EntityKeyValueTypeNumeric,
		Predicate: query.NumericFilterPredicate{
			Operation: query.NumericOperationGreater,
			Value: query.FilterPredicateValue[float64]{
				DefaultValue: 100,
				DynamicValue: &query.DynamicValue{SourceType: query.DynamicValueSourceCurrentTenant, SourceAttribute: "maxTemperature"},
			},
		},
	}
}

func namedDevice() query.KeyFilter {
	return query.KeyFilter{
		Key:       nameKey,
		ValueType: query.EntityKeyValueTypeString,
		Predicate: query.StringFilterPredicate{
			Operation:  query.StringOperationStartsWith,
			Value:      query.FilterPredicateValue[string]{DefaultValue: "DEVICE"},
			IgnoreCase: true,
		},
	}
}

func savedOverheating() *filters.SavedFilter {
	info := func(kf query.KeyFilter) query.KeyFilterInfo {
		return query.KeyFilterInfo{
			Key:        kf.Key,
			ValueType:  kf.ValueType,
			Predicates: []query.KeyFilterPredicateInfo{{KeyFilterPredicate: kf.Predicate}},
		}
	}
	return &filters.SavedFilter{
		ID:       "f-1",
		TenantID: "tenant-1",
		FilterInfo: query.FilterInfo{
			Filter:     "overheating devices",
			KeyFilters: []query.KeyFilterInfo{info(aboveTenantMax()), info(namedDevice())},
		},
	}
}

type fixture struct {
	service   *Service
	evaluator *evaluation.Evaluator
	compiler  *cel.Compiler
}

func newFixture(t *testing.T, store attributes.Store, opts ...ServiceOption) fixture {
	t.Helper()
	if store == nil {
		memory := attributes.NewMemoryStore()
		require.NoError(t, memory.PutAttribute(context.Background(), tenantOwner, "maxTemperature", 25.0))
		store = memory
	}

	log := logger.NopLogger()
	evaluator := evaluation.NewEvaluator(
		evaluation.NewResolver(attributes.NewReader(store), log),
		evaluation.DefaultOptions(),
		log,
	)
	compiler, err := cel.NewCompiler()
	require.NoError(t, err)

	saved := &stubFilters{saved: map[string]*filters.SavedFilter{"f-1": savedOverheating()}}
	opts = append([]ServiceOption{WithClock(func() time.Time { return time.UnixMilli(1_000) })}, opts...)
	return fixture{
		service:   NewService(evaluator, saved, compiler, log, opts...),
		evaluator: evaluator,
		compiler:  compiler,
	}
}

func firstPage() query.EntityDataPageLink {
	return query.EntityDataPageLink{PageSize: 10}
}

func ids(rows []query.EntityData) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.EntityID.ID
	}
	return out
}
