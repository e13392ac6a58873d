package evaluation

import (
	"context"
	"fmt"

	"entityquery/pkg/query"
)

// Bind returns a copy of keyFilters in which every leaf value carries its
// effective value as userValue, resolved for principal. The input is left
// untouched. Evaluating the bound copy gives the same verdicts without any
// further lookups.
func (e *Evaluator) Bind(ctx context.Context, principal Principal, keyFilters []query.KeyFilter) ([]query.KeyFilter, error) {
	if err := e.Validate(keyFilters); err != nil {
		return nil, err
	}

	s := e.newSession(principal)
	if e.opts.ConcurrentResolution {
		s.prefetch(ctx, keyFilters)
	}

	bound := make([]query.KeyFilter, 0, len(keyFilters))
	for i, keyFilter := range keyFilters {
		predicate, err := s.bindPredicate(ctx, keyFilter.Predicate)
		if err != nil {
			return nil, fmt.Errorf("keyFilters[%d]: %w", i, err)
		}
		bound = append(bound, query.KeyFilter{
			Key:       keyFilter.Key,
			ValueType: keyFilter.ValueType,
			Predicate: predicate,
		})
	}
	return bound, nil
}

func (s *session) bindPredicate(ctx context.Context, predicate query.KeyFilterPredicate) (query.KeyFilterPredicate, error) {
	switch p := predicate.(type) {
	case query.StringFilterPredicate:
		value, err := effectiveValue(ctx, s, p.Value, coerceString)
		if err != nil {
			return nil, err
		}
		p.Value = bindValue(p.Value, value)
		return p, nil
	case query.NumericFilterPredicate:
		value, err := effectiveValue(ctx, s, p.Value, coerceNumber)
		if err != nil {
			return nil, err
		}
		p.Value = bindValue(p.Value, value)
		return p, nil
	case query.BooleanFilterPredicate:
		value, err := effectiveValue(ctx, s, p.Value, coerceBool)
		if err != nil {
			return nil, err
		}
		p.Value = bindValue(p.Value, value)
		return p, nil
	case query.ComplexFilterPredicate:
		children := make([]query.KeyFilterPredicate, 0, len(p.Predicates))
		for _, child := range p.Predicates {
			boundChild, err := s.bindPredicate(ctx, child)
			if err != nil {
				return nil, err
			}
			children = append(children, boundChild)
		}
		return query.ComplexFilterPredicate{Operation: p.Operation, Predicates: children}, nil
	case query.ComplexFilterPredicateInfo:
		children := make([]query.KeyFilterPredicateInfo, 0, len(p.Predicates))
		for _, child := range p.Predicates {
			boundChild, err := s.bindPredicate(ctx, child.KeyFilterPredicate)
			if err != nil {
				return nil, err
			}
			userInfo := child.UserInfo
			if userInfo.Order != nil {
				order := *userInfo.Order
				userInfo.Order = &order
			}
			children = append(children, query.KeyFilterPredicateInfo{KeyFilterPredicate: boundChild, UserInfo: userInfo})
		}
		return query.ComplexFilterPredicateInfo{Operation: p.Operation, Predicates: children}, nil
	}
	return nil, fmt.Errorf("unsupported predicate %T", predicate)
}

func bindValue[T any](v query.FilterPredicateValue[T], effective T) query.FilterPredicateValue[T] {
	bound := query.FilterPredicateValue[T]{DefaultValue: v.DefaultValue, UserValue: &effective}
	if v.DynamicValue != nil {
		dv := *v.DynamicValue
		bound.DynamicValue = &dv
	}
	return bound
}
