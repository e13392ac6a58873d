package evaluation

import (
	"context"
	"sync"

	"entityquery/internal/constants"
	"entityquery/internal/logger"
	"entityquery/pkg/query"
)

var testPrincipal = Principal{
	TenantID:   "tenant-1",
	CustomerID: constants.NullUUID,
	UserID:     "user-1",
}

type fakeLookup struct {
	mu     sync.Mutex
	values map[string]any
	err    error
	calls  []string
	hook   func()
	// failures is how many calls fail with err before lookups succeed.
	failures int
}

func newFakeLookup(values map[string]any) *fakeLookup {
	return &fakeLookup{values: values}
}

func (f *fakeLookup) GetAttribute(ctx context.Context, owner query.EntityID, key string) (any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref := owner.String() + "/" + key
	f.calls = append(f.calls, ref)
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil && (f.failures == 0 || len(f.calls) <= f.failures) {
		return nil, false, f.err
	}
	v, ok := f.values[ref]
	return v, ok, nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEvaluator(lookup AttributeLookup, opts Options, resolverOpts ...ResolverOption) *Evaluator {
	log := logger.NopLogger()
	return NewEvaluator(NewResolver(lookup, log, resolverOpts...), opts, log)
}

func tenantValue(attr string) *query.DynamicValue {
	return &query.DynamicValue{SourceType: query.DynamicValueSourceCurrentTenant, SourceAttribute: attr}
}

func numericLeaf(op query.NumericOperation, defaultValue float64) query.NumericFilterPredicate {
	return query.NumericFilterPredicate{
		Operation: op,
		Value:     query.FilterPredicateValue[float64]{DefaultValue: defaultValue},
	}
}

func dynamicNumericLeaf(op query.NumericOperation, defaultValue float64, attr string) query.NumericFilterPredicate {
	p := numericLeaf(op, defaultValue)
	p.Value.DynamicValue = tenantValue(attr)
	return p
}

func stringLeaf(op query.StringOperation, value string, ignoreCase bool) query.StringFilterPredicate {
	return query.StringFilterPredicate{
		Operation:  op,
		Value:      query.FilterPredicateValue[string]{DefaultValue: value},
		IgnoreCase: ignoreCase,
	}
}

func keyFilter(keyType query.EntityKeyType, key string, valueType query.EntityKeyValueType, predicate query.KeyFilterPredicate) query.KeyFilter {
	return query.KeyFilter{
		Key:       query.EntityKey{Type: keyType, Key: key},
		ValueType: valueType,
		Predicate: predicate,
	}
}

func temperatureFilter(predicate query.KeyFilterPredicate) query.KeyFilter {
	return keyFilter(query.EntityKeyTypeTimeSeries, "temperature", query.EntityKeyValueTypeNumeric, predicate)
}

// device builds an entity from "TYPE.key" -> value pairs.
func device(id string, values map[string]string) query.EntityData {
	latest := query.LatestValues{}
	for ref, value := range values {
		var keyType, key string
		for i := range ref {
			if ref[i] == '.' {
				keyType, key = ref[:i], ref[i+1:]
				break
			}
		}
		latest.Set(query.EntityKeyType(keyType), key, query.TsValue{Ts: 1, Value: value})
	}
	return query.EntityData{
		EntityID: query.EntityID{EntityType: "DEVICE", ID: id},
		Latest:   latest,
	}
}
