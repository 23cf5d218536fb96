package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Dispatch metrics
	EventsTotal            *prometheus.CounterVec
	HandlerDurationSeconds *prometheus.HistogramVec
	HandlerErrorsTotal     *prometheus.CounterVec

	// Session store metrics
	SessionReadsTotal     *prometheus.CounterVec
	SessionWritesTotal    *prometheus.CounterVec
	SessionExpiredTotal   *prometheus.CounterVec
	StoreDurationSeconds  *prometheus.HistogramVec
	ActiveSessionsCurrent *prometheus.GaugeVec

	// Connector metrics
	VerificationFailures  *prometheus.CounterVec
	PreprocessShortTotal  *prometheus.CounterVec
	ProfileFetchesTotal   *prometheus.CounterVec
	ClientDurationSeconds *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropsTotal *prometheus.CounterVec
	RateLimiterKeys       *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Webhook metrics
		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_webhook_requests_total",
				Help: "Total number of webhook requests by platform and status",
			},
			[]string{"platform", "status"}, // status: success, error, rejected
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courier_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by platform",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"platform"},
		),

		// Dispatch metrics
		EventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_events_total",
				Help: "Total number of dispatched events by platform and event type",
			},
			[]string{"platform", "event_type"}, // event_type: message, payload, other
		),

		HandlerDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courier_handler_duration_seconds",
				Help:    "Handler execution duration in seconds by platform",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"platform"},
		),

		HandlerErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_handler_errors_total",
				Help: "Total number of handler errors by platform",
			},
			[]string{"platform"},
		),

		// Session store metrics
		SessionReadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_session_reads_total",
				Help: "Total number of session reads by driver and result",
			},
			[]string{"driver", "result"}, // result: hit, miss, expired, error
		),

		SessionWritesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_session_writes_total",
				Help: "Total number of session writes by driver and status",
			},
			[]string{"driver", "status"}, // status: success, error
		),

		SessionExpiredTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_session_expired_total",
				Help: "Total number of sessions discarded as expired on read",
			},
			[]string{"driver"},
		),

		StoreDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courier_store_duration_seconds",
				Help:    "Session store operation duration in seconds by driver and operation",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"driver", "operation"}, // operation: read, write, destroy
		),

		ActiveSessionsCurrent: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courier_active_sessions",
				Help: "Number of live sessions observed at last sweep by driver",
			},
			[]string{"driver"},
		),

		// Connector metrics
		VerificationFailures: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_verification_failures_total",
				Help: "Total number of rejected webhook requests by platform and reason",
			},
			[]string{"platform", "reason"}, // reason: signature, timestamp, token
		),

		PreprocessShortTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_preprocess_short_circuits_total",
				Help: "Total number of requests answered during preprocessing by platform",
			},
			[]string{"platform"},
		),

		ProfileFetchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_profile_fetches_total",
				Help: "Total number of user profile fetches by platform and status",
			},
			[]string{"platform", "status"}, // status: success, error
		),

		ClientDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courier_client_duration_seconds",
				Help:    "Outbound platform API call duration in seconds by platform",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"platform", "operation"},
		),

		// Cache metrics
		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_cache_hits_total",
				Help: "Total number of cache hits by cache name",
			},
			[]string{"cache"},
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_cache_misses_total",
				Help: "Total number of cache misses by cache name",
			},
			[]string{"cache"},
		),

		// Singleflight metrics
		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_singleflight_dedup_total",
				Help: "Total number of deduplicated calls (calls that waited instead of executing)",
			},
			[]string{"call"}, // call: store_init, profile_fetch
		),

		// Rate limiter metrics
		RateLimiterDropsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_ratelimiter_drops_total",
				Help: "Total number of events dropped by the rate limiter by limiter name",
			},
			[]string{"limiter"},
		),

		RateLimiterKeys: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courier_ratelimiter_keys",
				Help: "Number of keys currently tracked by the rate limiter by limiter name",
			},
			[]string{"limiter"},
		),
	}

	return m
}

// RecordWebhook records a webhook request
func (m *Metrics) RecordWebhook(platform, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(platform, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(platform).Observe(duration)
}

// RecordEvent records a dispatched event
func (m *Metrics) RecordEvent(platform, eventType string) {
	m.EventsTotal.WithLabelValues(platform, eventType).Inc()
}

// RecordHandler records a handler execution
func (m *Metrics) RecordHandler(platform string, duration float64, err error) {
	m.HandlerDurationSeconds.WithLabelValues(platform).Observe(duration)
	if err != nil {
		m.HandlerErrorsTotal.WithLabelValues(platform).Inc()
	}
}

// RecordSessionRead records a session read with its result
func (m *Metrics) RecordSessionRead(driver, result string, duration float64) {
	m.SessionReadsTotal.WithLabelValues(driver, result).Inc()
	m.StoreDurationSeconds.WithLabelValues(driver, "read").Observe(duration)
}

// RecordSessionWrite records a session write
func (m *Metrics) RecordSessionWrite(driver, status string, duration float64) {
	m.SessionWritesTotal.WithLabelValues(driver, status).Inc()
	m.StoreDurationSeconds.WithLabelValues(driver, "write").Observe(duration)
}

// RecordSessionExpired records a session discarded as expired
func (m *Metrics) RecordSessionExpired(driver string) {
	m.SessionExpiredTotal.WithLabelValues(driver).Inc()
}

// SetActiveSessions records the live session count from a sweep
func (m *Metrics) SetActiveSessions(driver string, count int) {
	m.ActiveSessionsCurrent.WithLabelValues(driver).Set(float64(count))
}

// RecordVerificationFailure records a rejected webhook request
func (m *Metrics) RecordVerificationFailure(platform, reason string) {
	m.VerificationFailures.WithLabelValues(platform, reason).Inc()
}

// RecordPreprocessShortCircuit records a request answered during preprocessing
func (m *Metrics) RecordPreprocessShortCircuit(platform string) {
	m.PreprocessShortTotal.WithLabelValues(platform).Inc()
}

// RecordProfileFetch records a user profile fetch
func (m *Metrics) RecordProfileFetch(platform, status string) {
	m.ProfileFetchesTotal.WithLabelValues(platform, status).Inc()
}

// RecordClientCall records an outbound platform API call
func (m *Metrics) RecordClientCall(platform, operation string, duration float64) {
	m.ClientDurationSeconds.WithLabelValues(platform, operation).Observe(duration)
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordRateLimiterDrop records an event dropped by a rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropsTotal.WithLabelValues(limiter).Inc()
}

// SetRateLimiterKeys sets the number of keys a rate limiter tracks
func (m *Metrics) SetRateLimiterKeys(limiter string, count int) {
	m.RateLimiterKeys.WithLabelValues(limiter).Set(float64(count))
}

// RecordSingleflightDedup records a deduplicated singleflight call
func (m *Metrics) RecordSingleflightDedup(call string) {
	m.SingleflightDedupTotal.WithLabelValues(call).Inc()
}
