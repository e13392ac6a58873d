package query

import (
	"encoding/json"
	"fmt"

	pkgerrors "entityquery/pkg/errors"
)

// KeyFilter binds one entity key and its declared value type to the predicate
// an entity must satisfy.
type KeyFilter struct {
	Key       EntityKey          `json:"key"`
	ValueType EntityKeyValueType `json:"valueType"`
	Predicate KeyFilterPredicate `json:"predicate"`
}

func (k *KeyFilter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key       EntityKey          `json:"key"`
		ValueType EntityKeyValueType `json:"valueType"`
		Predicate json.RawMessage    `json:"predicate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if isNull(raw.Predicate) {
		return pkgerrors.Configuration("key filter %s has no predicate", raw.Key)
	}
	predicate, err := UnmarshalKeyFilterPredicate(raw.Predicate)
	if err != nil {
		return err
	}
	k.Key = raw.Key
	k.ValueType = raw.ValueType
	k.Predicate = predicate
	return nil
}

// KeyFilterInfo is the authoring form of a KeyFilter: an ordered list of
// editable predicate fragments joined by AND.
type KeyFilterInfo struct {
	Key        EntityKey                `json:"key"`
	ValueType  EntityKeyValueType       `json:"valueType"`
	Predicates []KeyFilterPredicateInfo `json:"predicates"`
}

// ToKeyFilter folds the fragments into one effective predicate. A single
// fragment stands alone; several become an AND in list order. The user info
// is carried along but never read by evaluation.
func (k KeyFilterInfo) ToKeyFilter() (KeyFilter, error) {
	switch len(k.Predicates) {
	case 0:
		return KeyFilter{}, pkgerrors.Configuration("key filter %s has no predicates", k.Key)
	case 1:
		return KeyFilter{
			Key:       k.Key,
			ValueType: k.ValueType,
			Predicate: k.Predicates[0].KeyFilterPredicate,
		}, nil
	}
	return KeyFilter{
		Key:       k.Key,
		ValueType: k.ValueType,
		Predicate: ComplexFilterPredicateInfo{
			Operation:  ComplexOperationAnd,
			Predicates: k.Predicates,
		},
	}, nil
}

// FilterInfo is a named collection of key filters as saved by the editor.
type FilterInfo struct {
	Filter     string          `json:"filter"`
	Editable   bool            `json:"editable"`
	KeyFilters []KeyFilterInfo `json:"keyFilters"`
}

// KeyFilterSet converts every key filter info into its effective KeyFilter.
func (f FilterInfo) KeyFilterSet() ([]KeyFilter, error) {
	set := make([]KeyFilter, 0, len(f.KeyFilters))
	for i, info := range f.KeyFilters {
		keyFilter, err := info.ToKeyFilter()
		if err != nil {
			return nil, fmt.Errorf("keyFilters[%d]: %w", i, err)
		}
		set = append(set, keyFilter)
	}
	return set, nil
}

// Filter is a persisted FilterInfo.
type Filter struct {
	ID string `json:"id"`
	FilterInfo
}
