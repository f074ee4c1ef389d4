package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// batchesTotal counts dispatch invocations by terminal outcome.
	// Labels:
	// - outcome: completed | invalid | unauthorized | quota_exceeded | error
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certmail",
			Subsystem: "dispatch",
			Name:      "batches_total",
			Help:      "Batch dispatches by terminal outcome.",
		},
		[]string{"outcome"},
	)

	// messagesTotal counts per-recipient send attempts.
	// Labels:
	// - provider: ses | smtp | brevo | resend | none
	// - result: sent | failed | invalid | skipped
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certmail",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Per-recipient send attempts by provider and result.",
		},
		[]string{"provider", "result"},
	)

	// quotaUnitsReserved counts quota units charged to accounts.
	quotaUnitsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "certmail",
		Subsystem: "quota",
		Name:      "units_reserved_total",
		Help:      "Quota units reserved for batches.",
	})

	// ledgerWriteFailures counts swallowed job ledger write failures.
	// Labels:
	// - op: record_message | finalize_job
	ledgerWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certmail",
			Subsystem: "jobs",
			Name:      "ledger_write_failures_total",
			Help:      "Best-effort job ledger writes that failed.",
		},
		[]string{"op"},
	)

	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "certmail",
		Subsystem: "dispatch",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of the sequential send loop.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// sendDuration measures a single transport call.
	sendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "certmail",
		Subsystem: "email",
		Name:      "send_duration_seconds",
		Help:      "Latency of one transport call by provider.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// rateLimitExceeded counts HTTP 429 events from the rate limit middleware.
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certmail",
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"endpoint", "source"},
	)
)

// IncBatch increments the batch outcome counter.
func IncBatch(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	batchesTotal.WithLabelValues(outcome).Inc()
}

// IncMessage increments the per-recipient counter.
func IncMessage(provider, result string) {
	if provider == "" {
		provider = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	messagesTotal.WithLabelValues(provider, result).Inc()
}

// AddQuotaReserved records reserved quota units.
func AddQuotaReserved(n int) {
	if n > 0 {
		quotaUnitsReserved.Add(float64(n))
	}
}

// IncLedgerWriteFailure increments the swallowed ledger write counter.
func IncLedgerWriteFailure(op string) {
	ledgerWriteFailures.WithLabelValues(op).Inc()
}

// ObserveBatchDuration records the send loop duration in seconds.
func ObserveBatchDuration(seconds float64) { batchDurationSeconds.Observe(seconds) }

// ObserveSend records the latency of one transport call.
func ObserveSend(provider string, d time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	sendDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncRateLimitExceeded increments the 429 counter for the given endpoint and source.
func IncRateLimitExceeded(endpoint, source string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if source == "" {
		source = "unknown"
	}
	rateLimitExceeded.WithLabelValues(endpoint, source).Inc()
}
