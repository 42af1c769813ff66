package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SegmentCompilationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segment_compilations_total",
			Help: "Total number of filter compilations (count)",
		},
		[]string{"mode", "status"},
	)

	SegmentCompileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segment_compile_duration_ms",
			Help:    "Filter compilation duration in milliseconds, including membership lookup",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"mode"},
	)

	SegmentConditionsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segment_conditions_dropped_total",
			Help: "Total number of filter conditions dropped as unresolvable (count)",
		},
		[]string{"reason"},
	)

	MembershipLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segment_membership_lookup_duration_ms",
			Help:    "Duration of contact group membership lookups in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"status"},
	)

	ContactSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_searches_total",
			Help: "Total number of contact searches (count)",
		},
		[]string{"mode", "status"},
	)

	ContactSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contact_search_duration_ms",
			Help:    "Contact search duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"mode"},
	)

	AutomationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_events_total",
			Help: "Total number of contact events processed by the automation worker (count)",
		},
		[]string{"status"},
	)

	AutomationProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_processing_duration_ms",
			Help:    "Processing duration of one contact event in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	SegmentEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segment_evaluations_total",
			Help: "Total number of segment evaluations against contact events (count)",
		},
		[]string{"segment_id", "result"},
	)

	SegmentEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segment_entries_total",
			Help: "Total number of segment entries by dedup outcome (count)",
		},
		[]string{"status"},
	)

	AutomationActiveSegments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_active_segments",
			Help: "Number of enabled segments loaded by the automation worker (count)",
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
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

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
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

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
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

var fallbackOnce sync.Once

func RegisterSegmentMetrics() {
	prometheus.MustRegister(SegmentCompilationsTotal)
	prometheus.MustRegister(SegmentCompileDuration)
	prometheus.MustRegister(SegmentConditionsDroppedTotal)
	prometheus.MustRegister(MembershipLookupDuration)
	registerFallbackUsageTotalOnce()
}

func RegisterContactMetrics() {
	prometheus.MustRegister(ContactSearchesTotal)
	prometheus.MustRegister(ContactSearchDuration)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterDatabaseMetrics() {
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func RegisterAutomationMetrics() {
	prometheus.MustRegister(AutomationEventsTotal)
	prometheus.MustRegister(AutomationProcessingDuration)
	prometheus.MustRegister(SegmentEvaluationsTotal)
	prometheus.MustRegister(SegmentEntriesTotal)
	prometheus.MustRegister(AutomationActiveSegments)
	registerFallbackUsageTotalOnce()
}

func registerFallbackUsageTotalOnce() {
	fallbackOnce.Do(func() {
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaReadDuration)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func milliseconds(duration time.Duration) float64 {
	return float64(duration.Microseconds()) / 1000.0
}

func ObserveCompileDuration(duration time.Duration, mode string) {
	SegmentCompileDuration.WithLabelValues(mode).Observe(milliseconds(duration))
}

func IncCompilation(mode, status string) {
	SegmentCompilationsTotal.WithLabelValues(mode, status).Inc()
}

func IncConditionDropped(reason string) {
	SegmentConditionsDroppedTotal.WithLabelValues(reason).Inc()
}

func ObserveMembershipLookup(duration time.Duration, status string) {
	MembershipLookupDuration.WithLabelValues(status).Observe(milliseconds(duration))
}

func ObserveContactSearch(duration time.Duration, mode, status string) {
	ContactSearchesTotal.WithLabelValues(mode, status).Inc()
	ContactSearchDuration.WithLabelValues(mode).Observe(milliseconds(duration))
}

func ObserveAutomationDuration(duration time.Duration, status string) {
	AutomationEventsTotal.WithLabelValues(status).Inc()
	AutomationProcessingDuration.WithLabelValues(status).Observe(milliseconds(duration))
}

func IncSegmentEvaluation(segmentID, result string) {
	SegmentEvaluationsTotal.WithLabelValues(segmentID, result).Inc()
}

func IncSegmentEntry(status string) {
	SegmentEntriesTotal.WithLabelValues(status).Inc()
}

func SetAutomationActiveSegments(count int) {
	AutomationActiveSegments.Set(float64(count))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(milliseconds(duration))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(milliseconds(duration))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(milliseconds(duration))
}
