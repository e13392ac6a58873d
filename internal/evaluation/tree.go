package evaluation

import (
	"context"

	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/query"
)

// matchEntity reports whether entity satisfies every key filter. Key filters
// are checked in order and evaluation stops at the first one that fails.
func (s *session) matchEntity(ctx context.Context, keyFilters []query.KeyFilter, entity query.EntityData) (bool, error) {
	for _, keyFilter := range keyFilters {
		matched, err := s.evalPredicate(ctx, keyFilter.Predicate, lookupSubject(entity, keyFilter.Key), 1)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

func (s *session) evalPredicate(ctx context.Context, predicate query.KeyFilterPredicate, subj subject, depth int) (bool, error) {
	if depth > s.opts.MaxDepth {
		return false, pkgerrors.Configuration("predicate nesting exceeds %d levels", s.opts.MaxDepth)
	}

	switch p := predicate.(type) {
	case query.StringFilterPredicate:
		return s.evalString(ctx, p, subj)
	case query.NumericFilterPredicate:
		return s.evalNumeric(ctx, p, subj)
	case query.BooleanFilterPredicate:
		return s.evalBoolean(ctx, p, subj)
	case query.ComplexFilterPredicate:
		return s.fold(ctx, p.Operation, len(p.Predicates), func(i int) query.KeyFilterPredicate {
			return p.Predicates[i]
		}, subj, depth)
	case query.ComplexFilterPredicateInfo:
		return s.fold(ctx, p.Operation, len(p.Predicates), func(i int) query.KeyFilterPredicate {
			return p.Predicates[i].KeyFilterPredicate
		}, subj, depth)
	case nil:
		return false, pkgerrors.Configuration("predicate is required")
	}
	return false, pkgerrors.Configuration("unsupported predicate %T", predicate)
}

// fold combines n children left to right. AND stops at the first false
// child, OR at the first true one; later children are never evaluated.
func (s *session) fold(ctx context.Context, op query.ComplexOperation, n int, child func(int) query.KeyFilterPredicate, subj subject, depth int) (bool, error) {
	if op != query.ComplexOperationAnd && op != query.ComplexOperationOr {
		return false, pkgerrors.Configuration("unknown complex operation %q", string(op))
	}
	if n == 0 {
		return false, pkgerrors.Configuration("complex predicate %s has no children", op)
	}

	for i := 0; i < n; i++ {
		matched, err := s.evalPredicate(ctx, child(i), subj, depth+1)
		if err != nil {
			return false, err
		}
		if op == query.ComplexOperationAnd && !matched {
			return false, nil
		}
		if op == query.ComplexOperationOr && matched {
			return true, nil
		}
	}
	return op == query.ComplexOperationAnd, nil
}

func (s *session) evalString(ctx context.Context, p query.StringFilterPredicate, subj subject) (bool, error) {
	if !subj.present {
		return s.opts.MissingValuePolicy.verdict(p.Operation.Negation()), nil
	}
	value, err := effectiveValue(ctx, s, p.Value, coerceString)
	if err != nil {
		return false, err
	}
	return MatchString(p.Operation, subj.raw, value, p.IgnoreCase)
}

func (s *session) evalNumeric(ctx context.Context, p query.NumericFilterPredicate, subj subject) (bool, error) {
	number, ok := subj.number()
	if !ok {
		return s.opts.MissingValuePolicy.verdict(p.Operation.Negation()), nil
	}
	value, err := effectiveValue(ctx, s, p.Value, coerceNumber)
	if err != nil {
		return false, err
	}
	return MatchNumeric(p.Operation, number, value)
}

func (s *session) evalBoolean(ctx context.Context, p query.BooleanFilterPredicate, subj subject) (bool, error) {
	b, ok := subj.boolean()
	if !ok {
		return s.opts.MissingValuePolicy.verdict(p.Operation.Negation()), nil
	}
	value, err := effectiveValue(ctx, s, p.Value, coerceBool)
	if err != nil {
		return false, err
	}
	return MatchBoolean(p.Operation, b, value)
}
