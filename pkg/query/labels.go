package query

import "maps"

// OperationLabels maps operations and dynamic sources to translation keys for
// presentation code. Evaluation never reads it.
type OperationLabels struct {
	String        map[StringOperation]string        `json:"stringOperations"`
	Numeric       map[NumericOperation]string       `json:"numericOperations"`
	DynamicSource map[DynamicValueSourceType]string `json:"dynamicValueSourceTypes"`
}

var defaultOperationLabels = OperationLabels{
	String: map[StringOperation]string{
		StringOperationEqual:       "filter.operation.equal",
		StringOperationNotEqual:    "filter.operation.not-equal",
		StringOperationStartsWith:  "filter.operation.starts-with",
		StringOperationEndsWith:    "filter.operation.ends-with",
		StringOperationContains:    "filter.operation.contains",
		StringOperationNotContains: "filter.operation.not-contains",
	},
	Numeric: map[NumericOperation]string{
		NumericOperationEqual:          "filter.operation.equal",
		NumericOperationNotEqual:       "filter.operation.not-equal",
		NumericOperationGreater:        "filter.operation.greater",
		NumericOperationLess:           "filter.operation.less",
		NumericOperationGreaterOrEqual: "filter.operation.greater-or-equal",
		NumericOperationLessOrEqual:    "filter.operation.less-or-equal",
	},
	DynamicSource: map[DynamicValueSourceType]string{
		DynamicValueSourceCurrentTenant:   "filter.current-tenant",
		DynamicValueSourceCurrentCustomer: "filter.current-customer",
		DynamicValueSourceCurrentUser:     "filter.current-user",
	},
}

// DefaultOperationLabels returns a fresh copy of the built-in label table.
func DefaultOperationLabels() OperationLabels {
	return OperationLabels{
		String:        maps.Clone(defaultOperationLabels.String),
		Numeric:       maps.Clone(defaultOperationLabels.Numeric),
		DynamicSource: maps.Clone(defaultOperationLabels.DynamicSource),
	}
}

// StringLabel returns the key for op, or op itself when the table lacks it.
func (l OperationLabels) StringLabel(op StringOperation) string {
	if label, ok := l.String[op]; ok {
		return label
	}
	return string(op)
}

func (l OperationLabels) NumericLabel(op NumericOperation) string {
	if label, ok := l.Numeric[op]; ok {
		return label
	}
	return string(op)
}

func (l OperationLabels) DynamicSourceLabel(source DynamicValueSourceType) string {
	if label, ok := l.DynamicSource[source]; ok {
		return label
	}
	return string(source)
}
