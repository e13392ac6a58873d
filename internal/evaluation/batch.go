package evaluation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"entityquery/internal/constants"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
	"entityquery/pkg/tracing"
)

// Verdict is the outcome for one entity. Err is set when a lookup needed by
// this entity failed; Matched is then false.
type Verdict struct {
	EntityID query.EntityID
	Matched  bool
	Err      error
}

// EvaluateBatch checks every entity against keyFilters for principal.
//
// Configuration errors abort the batch. A storage failure is recorded on the
// affected entity's verdict and the batch continues. Cancellation is checked
// between entities; on cancellation the verdicts produced so far are
// returned together with the context error.
func (e *Evaluator) EvaluateBatch(ctx context.Context, principal Principal, keyFilters []query.KeyFilter, entities []query.EntityData) ([]Verdict, error) {
	ctx, span := tracing.GetTracer(constants.ServiceName).Start(ctx, "evaluation.batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("key_filters", len(keyFilters)),
		attribute.Int("entities", len(entities)),
	)

	start := time.Now()

	if err := e.Validate(keyFilters); err != nil {
		metrics.IncConfigurationError("evaluation")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s := e.newSession(principal)
	if e.opts.ConcurrentResolution {
		s.prefetch(ctx, keyFilters)
	}

	verdicts := make([]Verdict, 0, len(entities))
	failed := 0
	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			metrics.ObserveEvaluationDuration(time.Since(start), "cancelled")
			span.SetStatus(codes.Error, err.Error())
			return verdicts, err
		}

		matched, err := s.matchEntity(ctx, keyFilters, entity)
		if err != nil {
			if pkgerrors.IsConfiguration(err) {
				metrics.IncConfigurationError("evaluation")
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			failed++
			metrics.IncKeyFilterEvaluation("error")
			e.logger.WarnwCtx(ctx, "Entity evaluation failed",
				"entity_id", entity.EntityID.String(),
				"error", err,
			)
			verdicts = append(verdicts, Verdict{EntityID: entity.EntityID, Err: err})
			continue
		}

		if matched {
			metrics.IncKeyFilterEvaluation("matched")
		} else {
			metrics.IncKeyFilterEvaluation("rejected")
		}
		verdicts = append(verdicts, Verdict{EntityID: entity.EntityID, Matched: matched})
	}

	span.SetAttributes(attribute.Int("failed", failed))
	metrics.ObserveEvaluationDuration(time.Since(start), "ok")
	return verdicts, nil
}

// Matches evaluates a single entity. Storage failures are returned as errors.
func (e *Evaluator) Matches(ctx context.Context, principal Principal, keyFilters []query.KeyFilter, entity query.EntityData) (bool, error) {
	verdicts, err := e.EvaluateBatch(ctx, principal, keyFilters, []query.EntityData{entity})
	if err != nil {
		return false, err
	}
	if len(verdicts) == 0 {
		return false, nil
	}
	return verdicts[0].Matched, verdicts[0].Err
}

// FilterEntities keeps the entities whose verdict matched, in input order,
// and returns the verdicts that carry an error separately.
func (e *Evaluator) FilterEntities(ctx context.Context, principal Principal, keyFilters []query.KeyFilter, entities []query.EntityData) ([]query.EntityData, []Verdict, error) {
	verdicts, err := e.EvaluateBatch(ctx, principal, keyFilters, entities)
	if err != nil {
		return nil, nil, err
	}

	matched := make([]query.EntityData, 0, len(entities))
	var failed []Verdict
	for i, verdict := range verdicts {
		switch {
		case verdict.Err != nil:
			failed = append(failed, verdict)
		case verdict.Matched:
			matched = append(matched, entities[i])
		}
	}
	return matched, failed, nil
}
