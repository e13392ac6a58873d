package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	KeyFilterEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "key_filter_evaluations_total",
			Help: "Total number of entity verdicts produced by key filter evaluation (count)",
		},
		[]string{"result"},
	)

	KeyFilterEvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "key_filter_evaluation_duration_ms",
			Help:    "Duration of a batch key filter evaluation in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	DynamicValueResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dynamic_value_resolutions_total",
			Help: "Total number of dynamic value resolutions by source and outcome (count)",
		},
		[]string{"source", "outcome"},
	)

	ConfigurationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_configuration_errors_total",
			Help: "Total number of malformed filters rejected (count)",
		},
		[]string{"stage"},
	)

	AttributeStoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribute_store_requests_total",
			Help: "Total number of attribute store lookups (count)",
		},
		[]string{"store", "status"},
	)

	AttributeStoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attribute_store_duration_ms",
			Help:    "Duration of attribute store lookups in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"store"},
	)

	AttributeCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attribute_cache_requests_total",
			Help: "Total number of attribute cache lookups (count)",
		},
		[]string{"result"},
	)

	AttributeLoaderBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attribute_loader_batch_size",
			Help:    "Number of attribute keys fetched per batched load (count)",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	SavedFiltersCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "saved_filters_cached",
			Help: "Number of saved filters held in the read cache (count)",
		},
	)

	FilterEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_events_total",
			Help: "Total number of saved filter change events (count)",
		},
		[]string{"event_type", "direction"},
	)

	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_requests_total",
			Help: "Total number of entity and alarm query requests (count)",
		},
		[]string{"kind", "status"},
	)

	QueryResultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_result_rows",
			Help:    "Number of rows matching a query before paging (count)",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"kind"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "operation"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to the dead letter queue (count)",
		},
		[]string{"service", "source_topic", "reason"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			KeyFilterEvaluationsTotal,
			KeyFilterEvaluationDuration,
			DynamicValueResolutionsTotal,
			ConfigurationErrorsTotal,
			AttributeStoreRequestsTotal,
			AttributeStoreDuration,
			AttributeCacheRequestsTotal,
			AttributeLoaderBatchSize,
			SavedFiltersCached,
			FilterEventsTotal,
			QueryRequestsTotal,
			QueryResultSize,
			RetryAttemptsTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			KafkaMessagesReadTotal,
			KafkaMessagesWrittenTotal,
			KafkaWriteDuration,
			DLQMessagesTotal,
			DatabaseQueriesTotal,
			DatabaseQueryDuration,
		)
	})
}

func ObserveEvaluationDuration(duration time.Duration, status string) {
	KeyFilterEvaluationDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncKeyFilterEvaluation(result string) {
	KeyFilterEvaluationsTotal.WithLabelValues(result).Inc()
}

func IncDynamicValueResolution(source, outcome string) {
	DynamicValueResolutionsTotal.WithLabelValues(source, outcome).Inc()
}

func IncConfigurationError(stage string) {
	ConfigurationErrorsTotal.WithLabelValues(stage).Inc()
}

func IncAttributeStoreRequest(store, status string) {
	AttributeStoreRequestsTotal.WithLabelValues(store, status).Inc()
}

func ObserveAttributeStoreDuration(store string, duration time.Duration) {
	AttributeStoreDuration.WithLabelValues(store).Observe(float64(duration.Milliseconds()))
}

func IncAttributeCache(result string) {
	AttributeCacheRequestsTotal.WithLabelValues(result).Inc()
}

func ObserveLoaderBatchSize(size int) {
	AttributeLoaderBatchSize.Observe(float64(size))
}

func SetSavedFiltersCached(count int) {
	SavedFiltersCached.Set(float64(count))
}

func IncFilterEvent(eventType, direction string) {
	FilterEventsTotal.WithLabelValues(eventType, direction).Inc()
}

func IncQueryRequest(kind, status string) {
	QueryRequestsTotal.WithLabelValues(kind, status).Inc()
}

func ObserveQueryResultSize(kind string, rows int) {
	QueryResultSize.WithLabelValues(kind).Observe(float64(rows))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

// ObserveDatabaseQuery records the outcome and latency of one query that
// started at start.
func ObserveDatabaseQuery(service, database, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	IncDatabaseQuery(service, database, operation, status)
	ObserveDatabaseQueryDuration(service, database, operation, time.Since(start))
}
