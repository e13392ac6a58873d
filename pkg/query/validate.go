package query

import (
	"fmt"
	"math"
	"strings"

	pkgerrors "entityquery/pkg/errors"
)

// DefaultMaxDepth bounds COMPLEX nesting when no explicit limit is given.
const DefaultMaxDepth = 32

func (k EntityKey) Validate() error {
	if !k.Type.Valid() {
		return pkgerrors.Configuration("unknown entity key type %q", string(k.Type))
	}
	if strings.TrimSpace(k.Key) == "" {
		return pkgerrors.Configuration("entity key of type %s has an empty name", k.Type)
	}
	return nil
}

func (k KeyFilter) Validate(maxDepth int) error {
	if err := k.Key.Validate(); err != nil {
		return err
	}
	if !k.ValueType.Valid() {
		return pkgerrors.Configuration("key filter %s has unknown value type %q", k.Key, string(k.ValueType))
	}
	return ValidatePredicate(k.Predicate, k.ValueType, maxDepth)
}

func (k KeyFilterInfo) Validate(maxDepth int) error {
	keyFilter, err := k.ToKeyFilter()
	if err != nil {
		return err
	}
	return keyFilter.Validate(maxDepth)
}

func (f FilterInfo) Validate(maxDepth int) error {
	if strings.TrimSpace(f.Filter) == "" {
		return pkgerrors.Configuration("filter name is required")
	}
	for i, keyFilter := range f.KeyFilters {
		if err := keyFilter.Validate(maxDepth); err != nil {
			return fmt.Errorf("keyFilters[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateKeyFilters checks a whole key filter set.
func ValidateKeyFilters(keyFilters []KeyFilter, maxDepth int) error {
	for i, keyFilter := range keyFilters {
		if err := keyFilter.Validate(maxDepth); err != nil {
			return fmt.Errorf("keyFilters[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidatePredicate checks that predicate is well formed for valueType: known
// operations, a leaf family matching the value type, non-empty complex child
// lists and nesting no deeper than maxDepth. A maxDepth <= 0 means
// DefaultMaxDepth.
func ValidatePredicate(predicate KeyFilterPredicate, valueType EntityKeyValueType, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return validatePredicate(predicate, valueType, 1, maxDepth)
}

func validatePredicate(predicate KeyFilterPredicate, valueType EntityKeyValueType, depth, maxDepth int) error {
	if predicate == nil {
		return pkgerrors.Configuration("predicate is required")
	}
	if depth > maxDepth {
		return pkgerrors.Configuration("predicate nesting exceeds %d levels", maxDepth)
	}
	if t := predicate.PredicateType(); t != FilterPredicateTypeComplex && t != valueType.PredicateType() {
		return pkgerrors.Configuration("%s predicate cannot test a %s value", t, valueType)
	}

	switch p := predicate.(type) {
	case StringFilterPredicate:
		if !p.Operation.Valid() {
			return pkgerrors.Configuration("unknown string operation %q", string(p.Operation))
		}
		return validateDynamicValue(p.Value.DynamicValue)
	case NumericFilterPredicate:
		if !p.Operation.Valid() {
			return pkgerrors.Configuration("unknown numeric operation %q", string(p.Operation))
		}
		if math.IsNaN(p.Value.DefaultValue) {
			return pkgerrors.Configuration("numeric default value is NaN")
		}
		return validateDynamicValue(p.Value.DynamicValue)
	case BooleanFilterPredicate:
		if !p.Operation.Valid() {
			return pkgerrors.Configuration("unknown boolean operation %q", string(p.Operation))
		}
		return validateDynamicValue(p.Value.DynamicValue)
	case ComplexFilterPredicate:
		if !p.Operation.Valid() {
			return pkgerrors.Configuration("unknown complex operation %q", string(p.Operation))
		}
		if len(p.Predicates) == 0 {
			return pkgerrors.Configuration("complex predicate %s has no children", p.Operation)
		}
		for _, child := range p.Predicates {
			if err := validatePredicate(child, valueType, depth+1, maxDepth); err != nil {
				return err
			}
		}
		return nil
	case ComplexFilterPredicateInfo:
		if !p.Operation.Valid() {
			return pkgerrors.Configuration("unknown complex operation %q", string(p.Operation))
		}
		if len(p.Predicates) == 0 {
			return pkgerrors.Configuration("complex predicate %s has no children", p.Operation)
		}
		for _, child := range p.Predicates {
			if err := validatePredicate(child.KeyFilterPredicate, valueType, depth+1, maxDepth); err != nil {
				return err
			}
		}
		return nil
	}
	return pkgerrors.Configuration("unsupported predicate %T", predicate)
}

func validateDynamicValue(dv *DynamicValue) error {
	if dv == nil {
		return nil
	}
	if !dv.SourceType.Valid() {
		return pkgerrors.Configuration("unknown dynamic value source type %q", string(dv.SourceType))
	}
	if strings.TrimSpace(dv.SourceAttribute) == "" {
		return pkgerrors.Configuration("dynamic value from %s has no source attribute", dv.SourceType)
	}
	return nil
}

func (l EntityDataPageLink) Validate() error {
	if l.PageSize <= 0 {
		return pkgerrors.ErrValidation.WithMessage("pageSize must be positive, got %d", l.PageSize)
	}
	if l.Page < 0 {
		return pkgerrors.ErrValidation.WithMessage("page must not be negative, got %d", l.Page)
	}
	if l.SortOrder != nil {
		if err := l.SortOrder.Key.Validate(); err != nil {
			return err
		}
		if !l.SortOrder.Direction.Valid() {
			return pkgerrors.Configuration("unknown sort direction %q", string(l.SortOrder.Direction))
		}
	}
	return nil
}

func (l AlarmDataPageLink) Validate() error {
	if err := l.EntityDataPageLink.Validate(); err != nil {
		return err
	}
	if l.StartTs != nil && l.EndTs != nil && *l.StartTs > *l.EndTs {
		return pkgerrors.ErrValidation.WithMessage("startTs %d is after endTs %d", *l.StartTs, *l.EndTs)
	}
	if l.TimeWindow != nil && *l.TimeWindow < 0 {
		return pkgerrors.ErrValidation.WithMessage("timeWindow must not be negative, got %d", *l.TimeWindow)
	}
	for _, status := range l.StatusList {
		if !status.Valid() {
			return pkgerrors.Configuration("unknown alarm search status %q", string(status))
		}
	}
	for _, severity := range l.SeverityList {
		if !severity.Valid() {
			return pkgerrors.Configuration("unknown alarm severity %q", string(severity))
		}
	}
	return nil
}
