package evaluation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"entityquery/internal/config"
	"entityquery/internal/logger"
	"entityquery/pkg/query"
)

type Options struct {
	MaxDepth           int
	MissingValuePolicy MissingValuePolicy
	// ConcurrentResolution resolves every dynamic value of a key filter set
	// up front, at most MaxConcurrency at a time. Without it values are
	// resolved lazily and short-circuited branches never trigger a lookup.
	ConcurrentResolution bool
	MaxConcurrency       int
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:           query.DefaultMaxDepth,
		MissingValuePolicy: MissingNegationMatches,
		MaxConcurrency:     8,
	}
}

// OptionsFromConfig maps the evaluation section of the service config.
func OptionsFromConfig(cfg config.EvaluationConfig) Options {
	return Options{
		MaxDepth:             cfg.MaxDepth,
		MissingValuePolicy:   MissingValuePolicy(cfg.MissingValuePolicy),
		ConcurrentResolution: cfg.ConcurrentResolution,
		MaxConcurrency:       cfg.MaxConcurrency,
	}
}

type Evaluator struct {
	resolver *Resolver
	opts     Options
	logger   logger.Logger
}

func NewEvaluator(resolver *Resolver, opts Options, log logger.Logger) *Evaluator {
	defaults := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.MissingValuePolicy == "" {
		opts.MissingValuePolicy = defaults.MissingValuePolicy
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaults.MaxConcurrency
	}
	return &Evaluator{
		resolver: resolver,
		opts:     opts,
		logger:   log,
	}
}

func (e *Evaluator) Options() Options {
	return e.opts
}

// Validate reports the first configuration error in keyFilters.
func (e *Evaluator) Validate(keyFilters []query.KeyFilter) error {
	return query.ValidateKeyFilters(keyFilters, e.opts.MaxDepth)
}

// session carries the state of one evaluation call: the principal and the
// dynamic values already resolved for it.
type session struct {
	resolver  *Resolver
	principal Principal
	opts      Options
	cache     *resolutionCache
}

func (e *Evaluator) newSession(principal Principal) *session {
	return &session{
		resolver:  e.resolver,
		principal: principal,
		opts:      e.opts,
		cache:     newResolutionCache(),
	}
}

func (s *session) resolve(ctx context.Context, dv query.DynamicValue) (Resolution, error) {
	if resolution, ok := s.cache.get(dv); ok {
		return resolution, nil
	}
	resolution, err := s.resolver.Resolve(ctx, s.principal, dv)
	if err != nil {
		return Resolution{}, err
	}
	s.cache.put(dv, resolution)
	return resolution, nil
}

// prefetch resolves all dynamic values of keyFilters concurrently. Failures
// are dropped here and surface only where a leaf needs that value.
func (s *session) prefetch(ctx context.Context, keyFilters []query.KeyFilter) {
	pending := collectDynamicValues(keyFilters)
	if len(pending) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)
	for _, dv := range pending {
		g.Go(func() error {
			_, _ = s.resolve(ctx, dv)
			return nil
		})
	}
	_ = g.Wait()
}

// collectDynamicValues lists the distinct dynamic values that evaluation may
// need, in first-seen order. Values shadowed by a user value are skipped.
func collectDynamicValues(keyFilters []query.KeyFilter) []query.DynamicValue {
	seen := make(map[query.DynamicValue]bool)
	var out []query.DynamicValue

	add := func(dv *query.DynamicValue, overridden bool) {
		if dv == nil || overridden || seen[*dv] {
			return
		}
		seen[*dv] = true
		out = append(out, *dv)
	}

	var walk func(predicate query.KeyFilterPredicate)
	walk = func(predicate query.KeyFilterPredicate) {
		switch p := predicate.(type) {
		case query.StringFilterPredicate:
			add(p.Value.DynamicValue, p.Value.UserValue != nil)
		case query.NumericFilterPredicate:
			add(p.Value.DynamicValue, p.Value.UserValue != nil)
		case query.BooleanFilterPredicate:
			add(p.Value.DynamicValue, p.Value.UserValue != nil)
		case query.ComplexFilterPredicate:
			for _, child := range p.Predicates {
				walk(child)
			}
		case query.ComplexFilterPredicateInfo:
			for _, child := range p.Predicates {
				walk(child.KeyFilterPredicate)
			}
		}
	}

	for _, keyFilter := range keyFilters {
		walk(keyFilter.Predicate)
	}
	return out
}

// effectiveValue applies the precedence userValue, resolved dynamic value,
// defaultValue. A resolved value that cannot be coerced to T is a miss.
func effectiveValue[T any](ctx context.Context, s *session, v query.FilterPredicateValue[T], coerce func(any) (T, bool)) (T, error) {
	if v.UserValue != nil {
		return *v.UserValue, nil
	}
	if v.DynamicValue != nil {
		resolution, err := s.resolve(ctx, *v.DynamicValue)
		if err != nil {
			var zero T
			return zero, err
		}
		if resolution.Found {
			if typed, ok := coerce(resolution.Value); ok {
				return typed, nil
			}
		}
	}
	return v.DefaultValue, nil
}
