package query

import (
	"encoding/json"
	"slices"

	pkgerrors "entityquery/pkg/errors"
)

// decodeEnum reads a JSON string and accepts it only if it belongs to known.
// Unknown values are configuration errors, never silently dropped.
func decodeEnum[T ~string](data []byte, known []T, kind string) (T, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", pkgerrors.Configuration("%s must be a string", kind).WithCause(err)
	}
	v := T(raw)
	if !slices.Contains(known, v) {
		return "", pkgerrors.Configuration("unknown %s %q", kind, raw).WithDetail("value", raw)
	}
	return v, nil
}

type EntityKeyValueType string

const (
	EntityKeyValueTypeString   EntityKeyValueType = "STRING"
	EntityKeyValueTypeNumeric  EntityKeyValueType = "NUMERIC"
	EntityKeyValueTypeBoolean  EntityKeyValueType = "BOOLEAN"
	EntityKeyValueTypeDateTime EntityKeyValueType = "DATE_TIME"
)

var entityKeyValueTypes = []EntityKeyValueType{
	EntityKeyValueTypeString,
	EntityKeyValueTypeNumeric,
	EntityKeyValueTypeBoolean,
	EntityKeyValueTypeDateTime,
}

func (t EntityKeyValueType) Valid() bool { return slices.Contains(entityKeyValueTypes, t) }

func (t *EntityKeyValueType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, entityKeyValueTypes, "entity key value type")
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PredicateType returns the leaf predicate family that may test values of
// this type. DATE_TIME values are epoch milliseconds and reuse NUMERIC.
func (t EntityKeyValueType) PredicateType() FilterPredicateType {
	switch t {
	case EntityKeyValueTypeString:
		return FilterPredicateTypeString
	case EntityKeyValueTypeNumeric, EntityKeyValueTypeDateTime:
		return FilterPredicateTypeNumeric
	case EntityKeyValueTypeBoolean:
		return FilterPredicateTypeBoolean
	}
	return ""
}

type FilterPredicateType string

const (
	FilterPredicateTypeString  FilterPredicateType = "STRING"
	FilterPredicateTypeNumeric FilterPredicateType = "NUMERIC"
	FilterPredicateTypeBoolean FilterPredicateType = "BOOLEAN"
	FilterPredicateTypeComplex FilterPredicateType = "COMPLEX"
)

var filterPredicateTypes = []FilterPredicateType{
	FilterPredicateTypeString,
	FilterPredicateTypeNumeric,
	FilterPredicateTypeBoolean,
	FilterPredicateTypeComplex,
}

func (t FilterPredicateType) Valid() bool { return slices.Contains(filterPredicateTypes, t) }

func (t *FilterPredicateType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, filterPredicateTypes, "filter predicate type")
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type StringOperation string

const (
	StringOperationEqual       StringOperation = "EQUAL"
	StringOperationNotEqual    StringOperation = "NOT_EQUAL"
	StringOperationStartsWith  StringOperation = "STARTS_WITH"
	StringOperationEndsWith    StringOperation = "ENDS_WITH"
	StringOperationContains    StringOperation = "CONTAINS"
	StringOperationNotContains StringOperation = "NOT_CONTAINS"
)

var stringOperations = []StringOperation{
	StringOperationEqual,
	StringOperationNotEqual,
	StringOperationStartsWith,
	StringOperationEndsWith,
	StringOperationContains,
	StringOperationNotContains,
}

func (o StringOperation) Valid() bool { return slices.Contains(stringOperations, o) }

// Negation reports whether the operation is satisfied by "not matching".
func (o StringOperation) Negation() bool {
	return o == StringOperationNotEqual || o == StringOperationNotContains
}

func (o *StringOperation) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, stringOperations, "string operation")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

type NumericOperation string

const (
	NumericOperationEqual          NumericOperation = "EQUAL"
	NumericOperationNotEqual       NumericOperation = "NOT_EQUAL"
	NumericOperationGreater        NumericOperation = "GREATER"
	NumericOperationLess           NumericOperation = "LESS"
	NumericOperationGreaterOrEqual NumericOperation = "GREATER_OR_EQUAL"
	NumericOperationLessOrEqual    NumericOperation = "LESS_OR_EQUAL"
)

var numericOperations = []NumericOperation{
	NumericOperationEqual,
	NumericOperationNotEqual,
	NumericOperationGreater,
	NumericOperationLess,
	NumericOperationGreaterOrEqual,
	NumericOperationLessOrEqual,
}

func (o NumericOperation) Valid() bool { return slices.Contains(numericOperations, o) }

func (o NumericOperation) Negation() bool { return o == NumericOperationNotEqual }

func (o *NumericOperation) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, numericOperations, "numeric operation")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

type BooleanOperation string

const (
	BooleanOperationEqual    BooleanOperation = "EQUAL"
	BooleanOperationNotEqual BooleanOperation = "NOT_EQUAL"
)

var booleanOperations = []BooleanOperation{BooleanOperationEqual, BooleanOperationNotEqual}

func (o BooleanOperation) Valid() bool { return slices.Contains(booleanOperations, o) }

func (o BooleanOperation) Negation() bool { return o == BooleanOperationNotEqual }

func (o *BooleanOperation) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, booleanOperations, "boolean operation")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

type ComplexOperation string

const (
	ComplexOperationAnd ComplexOperation = "AND"
	ComplexOperationOr  ComplexOperation = "OR"
)

var complexOperations = []ComplexOperation{ComplexOperationAnd, ComplexOperationOr}

func (o ComplexOperation) Valid() bool { return slices.Contains(complexOperations, o) }

func (o *ComplexOperation) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, complexOperations, "complex operation")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

type DynamicValueSourceType string

const (
	DynamicValueSourceCurrentTenant   DynamicValueSourceType = "CURRENT_TENANT"
	DynamicValueSourceCurrentCustomer DynamicValueSourceType = "CURRENT_CUSTOMER"
	DynamicValueSourceCurrentUser     DynamicValueSourceType = "CURRENT_USER"
)

var dynamicValueSourceTypes = []DynamicValueSourceType{
	DynamicValueSourceCurrentTenant,
	DynamicValueSourceCurrentCustomer,
	DynamicValueSourceCurrentUser,
}

func (s DynamicValueSourceType) Valid() bool { return slices.Contains(dynamicValueSourceTypes, s) }

func (s *DynamicValueSourceType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, dynamicValueSourceTypes, "dynamic value source type")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Direction string

const (
	DirectionAsc  Direction = "ASC"
	DirectionDesc Direction = "DESC"
)

var directions = []Direction{DirectionAsc, DirectionDesc}

func (d Direction) Valid() bool { return slices.Contains(directions, d) }

func (d *Direction) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, directions, "sort direction")
	if err != nil {
		return err
	}
	*d = v
	return nil
}
