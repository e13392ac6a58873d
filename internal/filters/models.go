package filters

import (
	"time"

	"entityquery/pkg/query"
)

// SavedFilter is a FilterInfo persisted for one tenant.
type SavedFilter struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	query.FilterInfo
	CreatedAt time.Time `json:"createdTime"`
	UpdatedAt time.Time `json:"updatedTime"`
}

func (f *SavedFilter) clone() *SavedFilter {
	out := *f
	out.KeyFilters = append([]query.KeyFilterInfo(nil), f.KeyFilters...)
	return &out
}

type ValidateFilterResponse struct {
	Valid  bool             `json:"valid"`
	Error  string           `json:"error,omitempty"`
	Labels []PredicateLabel `json:"labels,omitempty"`
}

// PredicateLabel holds the translation keys an editor renders for one
// predicate leaf.
type PredicateLabel struct {
	Key           string `json:"key"`
	Operation     string `json:"operation"`
	DynamicSource string `json:"dynamicSource,omitempty"`
}

// describePredicates lists the leaves of info in document order.
func describePredicates(info query.FilterInfo, labels query.OperationLabels) []PredicateLabel {
	var out []PredicateLabel
	var walk func(key string, predicate query.KeyFilterPredicate)
	walk = func(key string, predicate query.KeyFilterPredicate) {
		switch p := predicate.(type) {
		case query.StringFilterPredicate:
			out = append(out, PredicateLabel{
				Key:           key,
				Operation:     labels.StringLabel(p.Operation),
				DynamicSource: sourceLabel(labels, p.Value.DynamicValue),
			})
		case query.NumericFilterPredicate:
			out = append(out, PredicateLabel{
				Key:           key,
				Operation:     labels.NumericLabel(p.Operation),
				DynamicSource: sourceLabel(labels, p.Value.DynamicValue),
			})
		case query.BooleanFilterPredicate:
			out = append(out, PredicateLabel{
				Key:           key,
				Operation:     string(p.Operation),
				DynamicSource: sourceLabel(labels, p.Value.DynamicValue),
			})
		case query.ComplexFilterPredicate:
			for _, child := range p.Predicates {
				walk(key, child)
			}
		case query.ComplexFilterPredicateInfo:
			for _, child := range p.Predicates {
				walk(key, child.KeyFilterPredicate)
			}
		}
	}
	for _, keyFilter := range info.KeyFilters {
		for _, predicate := range keyFilter.Predicates {
			walk(keyFilter.Key.Key, predicate.KeyFilterPredicate)
		}
	}
	return out
}

func sourceLabel(labels query.OperationLabels, dv *query.DynamicValue) string {
	if dv == nil {
		return ""
	}
	return labels.DynamicSourceLabel(dv.SourceType)
}
