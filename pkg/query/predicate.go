package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	pkgerrors "entityquery/pkg/errors"
)

// KeyFilterPredicate is the closed set of predicate variants. Only the types
// declared in this package implement it; consumers switch on the concrete
// type:
//
//	StringFilterPredicate, NumericFilterPredicate, BooleanFilterPredicate,
//	ComplexFilterPredicate, ComplexFilterPredicateInfo
type KeyFilterPredicate interface {
	PredicateType() FilterPredicateType
	keyFilterPredicate()
}

type DynamicValue struct {
	SourceType      DynamicValueSourceType `json:"sourceType"`
	SourceAttribute string                 `json:"sourceAttribute"`
}

// FilterPredicateValue carries the right-hand operand of a leaf predicate.
// Precedence is UserValue, then the resolved DynamicValue, then DefaultValue.
type FilterPredicateValue[T any] struct {
	DefaultValue T             `json:"defaultValue"`
	UserValue    *T            `json:"userValue,omitempty"`
	DynamicValue *DynamicValue `json:"dynamicValue,omitempty"`
}

func (v *FilterPredicateValue[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		DefaultValue *T            `json:"defaultValue"`
		UserValue    *T            `json:"userValue"`
		DynamicValue *DynamicValue `json:"dynamicValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.DefaultValue == nil {
		return pkgerrors.Configuration("predicate value requires defaultValue")
	}
	v.DefaultValue = *raw.DefaultValue
	v.UserValue = raw.UserValue
	v.DynamicValue = raw.DynamicValue
	return nil
}

// WithUserValue returns a copy whose user override is set to value.
func (v FilterPredicateValue[T]) WithUserValue(value T) FilterPredicateValue[T] {
	v.UserValue = &value
	return v
}

type StringFilterPredicate struct {
	Operation  StringOperation              `json:"operation"`
	Value      FilterPredicateValue[string] `json:"value"`
	IgnoreCase bool                         `json:"ignoreCase"`
}

func (StringFilterPredicate) PredicateType() FilterPredicateType { return FilterPredicateTypeString }
func (StringFilterPredicate) keyFilterPredicate()                {}

func (p StringFilterPredicate) MarshalJSON() ([]byte, error) {
	type plain StringFilterPredicate
	return json.Marshal(struct {
		Type FilterPredicateType `json:"type"`
		plain
	}{FilterPredicateTypeString, plain(p)})
}

type NumericFilterPredicate struct {
	Operation NumericOperation              `json:"operation"`
	Value     FilterPredicateValue[float64] `json:"value"`
}

func (NumericFilterPredicate) PredicateType() FilterPredicateType { return FilterPredicateTypeNumeric }
func (NumericFilterPredicate) keyFilterPredicate()                {}

func (p NumericFilterPredicate) MarshalJSON() ([]byte, error) {
	type plain NumericFilterPredicate
	return json.Marshal(struct {
		Type FilterPredicateType `json:"type"`
		plain
	}{FilterPredicateTypeNumeric, plain(p)})
}

type BooleanFilterPredicate struct {
	Operation BooleanOperation           `json:"operation"`
	Value     FilterPredicateValue[bool] `json:"value"`
}

func (BooleanFilterPredicate) PredicateType() FilterPredicateType { return FilterPredicateTypeBoolean }
func (BooleanFilterPredicate) keyFilterPredicate()                {}

func (p BooleanFilterPredicate) MarshalJSON() ([]byte, error) {
	type plain BooleanFilterPredicate
	return json.Marshal(struct {
		Type FilterPredicateType `json:"type"`
		plain
	}{FilterPredicateTypeBoolean, plain(p)})
}

type ComplexFilterPredicate struct {
	Operation  ComplexOperation     `json:"operation"`
	Predicates []KeyFilterPredicate `json:"predicates"`
}

func (ComplexFilterPredicate) PredicateType() FilterPredicateType { return FilterPredicateTypeComplex }
func (ComplexFilterPredicate) keyFilterPredicate()                {}

func (p ComplexFilterPredicate) MarshalJSON() ([]byte, error) {
	type plain ComplexFilterPredicate
	return json.Marshal(struct {
		Type FilterPredicateType `json:"type"`
		plain
	}{FilterPredicateTypeComplex, plain(p)})
}

func (p *ComplexFilterPredicate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operation  ComplexOperation  `json:"operation"`
		Predicates []json.RawMessage `json:"predicates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	children := make([]KeyFilterPredicate, 0, len(raw.Predicates))
	for i, child := range raw.Predicates {
		predicate, err := UnmarshalKeyFilterPredicate(child)
		if err != nil {
			return fmt.Errorf("predicates[%d]: %w", i, err)
		}
		children = append(children, predicate)
	}
	p.Operation = raw.Operation
	p.Predicates = children
	return nil
}

type KeyFilterPredicateUserInfo struct {
	Editable           bool   `json:"editable"`
	Label              string `json:"label"`
	AutogeneratedLabel bool   `json:"autogeneratedLabel"`
	Order              *int   `json:"order,omitempty"`
}

// KeyFilterPredicateInfo is an authoring fragment: a predicate plus metadata
// that only the filter editor reads.
type KeyFilterPredicateInfo struct {
	KeyFilterPredicate KeyFilterPredicate         `json:"keyFilterPredicate"`
	UserInfo           KeyFilterPredicateUserInfo `json:"userInfo"`
}

func (i *KeyFilterPredicateInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		KeyFilterPredicate json.RawMessage            `json:"keyFilterPredicate"`
		UserInfo           KeyFilterPredicateUserInfo `json:"userInfo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if isNull(raw.KeyFilterPredicate) {
		return pkgerrors.Configuration("predicate info requires keyFilterPredicate")
	}
	predicate, err := UnmarshalKeyFilterPredicate(raw.KeyFilterPredicate)
	if err != nil {
		return err
	}
	i.KeyFilterPredicate = predicate
	i.UserInfo = raw.UserInfo
	return nil
}

// ComplexFilterPredicateInfo is the authoring form of a COMPLEX predicate
// whose children are predicate infos.
type ComplexFilterPredicateInfo struct {
	Operation  ComplexOperation         `json:"operation"`
	Predicates []KeyFilterPredicateInfo `json:"predicates"`
}

func (ComplexFilterPredicateInfo) PredicateType() FilterPredicateType {
	return FilterPredicateTypeComplex
}
func (ComplexFilterPredicateInfo) keyFilterPredicate() {}

func (p ComplexFilterPredicateInfo) MarshalJSON() ([]byte, error) {
	type plain ComplexFilterPredicateInfo
	return json.Marshal(struct {
		Type FilterPredicateType `json:"type"`
		plain
	}{FilterPredicateTypeComplex, plain(p)})
}

// UnmarshalKeyFilterPredicate decodes a predicate by its "type" discriminant.
// A COMPLEX predicate whose children carry "keyFilterPredicate" decodes as
// ComplexFilterPredicateInfo.
func UnmarshalKeyFilterPredicate(data []byte) (KeyFilterPredicate, error) {
	if isNull(data) {
		return nil, pkgerrors.Configuration("predicate is required")
	}
	var head struct {
		Type       *FilterPredicateType `json:"type"`
		Predicates []json.RawMessage    `json:"predicates"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if head.Type == nil {
		return nil, pkgerrors.Configuration("predicate type is required")
	}

	switch *head.Type {
	case FilterPredicateTypeString:
		var p StringFilterPredicate
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case FilterPredicateTypeNumeric:
		var p NumericFilterPredicate
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case FilterPredicateTypeBoolean:
		var p BooleanFilterPredicate
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case FilterPredicateTypeComplex:
		wrapped, err := holdsPredicateInfos(head.Predicates)
		if err != nil {
			return nil, err
		}
		if wrapped {
			var p ComplexFilterPredicateInfo
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, err
			}
			return p, nil
		}
		var p ComplexFilterPredicate
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, pkgerrors.Configuration("unknown filter predicate type %q", string(*head.Type))
}

// holdsPredicateInfos reports whether every child is wrapped in
// "keyFilterPredicate". A list mixing wrapped and bare children is rejected.
func holdsPredicateInfos(children []json.RawMessage) (bool, error) {
	wrapped := 0
	for _, child := range children {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(child, &fields); err != nil {
			continue
		}
		if _, ok := fields["keyFilterPredicate"]; ok {
			wrapped++
		}
	}
	if wrapped > 0 && wrapped < len(children) {
		return false, pkgerrors.Configuration("complex predicate mixes %d wrapped and %d bare children", wrapped, len(children)-wrapped)
	}
	return wrapped > 0, nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
