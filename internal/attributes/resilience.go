package attributes

import (
	"context"
	"errors"
	"time"

	"entityquery/internal/constants"
	"entityquery/internal/logger"
	"entityquery/pkg/circuitbreaker"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
	"entityquery/pkg/retry"
)

var errReadOnly = errors.New("attribute store is read-only")

// CircuitBreakerStore stops calling a failing store for a while. Every
// failure, including an open breaker, is reported as StorageUnavailable.
type CircuitBreakerStore struct {
	next Store
	name string
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(next Store, name string, cfg circuitbreaker.Config) *CircuitBreakerStore {
	if cfg.Name == "" {
		cfg.Name = name
	}
	return &CircuitBreakerStore{
		next: next,
		name: name,
		cb:   circuitbreaker.NewWrapper(cfg),
	}
}

func (s *CircuitBreakerStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	start := time.Now()
	result, err := circuitbreaker.Execute(ctx, s.cb, func(ctx context.Context) (map[string]any, error) {
		return s.next.GetAttributes(ctx, owner, keys)
	})
	metrics.ObserveAttributeStoreDuration(s.name, time.Since(start))

	if err != nil {
		metrics.IncAttributeStoreRequest(s.name, "error")
		if pkgerrors.IsStorageUnavailable(err) {
			return nil, err
		}
		return nil, pkgerrors.StorageUnavailable(err).
			WithDetail("store", s.name).
			WithDetail("breaker", s.cb.State().String())
	}
	metrics.IncAttributeStoreRequest(s.name, "success")
	return result, nil
}

func (s *CircuitBreakerStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	writer, ok := s.next.(Writer)
	if !ok {
		return errReadOnly
	}
	return writer.PutAttribute(ctx, owner, key, value)
}

func (s *CircuitBreakerStore) IsOpen() bool {
	return s.cb.IsOpen()
}

// RetryingStore retries transient store failures with exponential backoff.
type RetryingStore struct {
	next   Store
	policy retry.Policy
	logger logger.Logger
}

func NewRetryingStore(next Store, policy retry.Policy, log logger.Logger) *RetryingStore {
	return &RetryingStore{next: next, policy: policy, logger: log}
}

func (s *RetryingStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	var result map[string]any
	err := retry.RetryWithCallback(ctx, s.policy, func() error {
		var err error
		result, err = s.next.GetAttributes(ctx, owner, keys)
		return err
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(constants.ServiceName, "get_attributes").Inc()
		s.logger.WarnwCtx(ctx, "Retrying attribute lookup",
			"owner", owner.String(),
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RetryingStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	writer, ok := s.next.(Writer)
	if !ok {
		return errReadOnly
	}
	return writer.PutAttribute(ctx, owner, key, value)
}
