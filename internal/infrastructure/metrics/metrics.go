package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campuswallet"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerOperations  *prometheus.CounterVec
	LedgerDuration    *prometheus.HistogramVec
	LedgerAmount      *prometheus.HistogramVec
	ConsistencyChecks *prometheus.CounterVec

	// Account metrics
	AccountsProvisioned prometheus.Counter

	// Notification metrics
	NotificationsPublished *prometheus.CounterVec
	NotificationsDropped   *prometheus.CounterVec
	StreamSubscribers      prometheus.Gauge

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the metrics on reg. A nil reg leaves them unregistered.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		LedgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Duration of ledger operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LedgerAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_amount",
				Help:      "Amounts moved by committed ledger operations",
				Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 10000},
			},
			[]string{"operation"},
		),
		ConsistencyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_consistency_checks_total",
				Help:      "Ledger consistency checks by result",
			},
			[]string{"result"},
		),

		AccountsProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_provisioned_total",
			Help:      "Total number of accounts provisioned",
		}),

		NotificationsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Completion events published by transport",
			},
			[]string{"transport"},
		),
		NotificationsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Completion events not delivered to a local stream, by reason",
			},
			[]string{"reason"},
		),
		StreamSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_subscribers",
			Help:      "Currently connected notification streams",
		}),

		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total authentication attempts",
			},
			[]string{"status"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"class"},
		),
	}
}

// ObserveLedgerOperation records one ledger operation. kind is the error
// classification and is ignored when ok is true.
func (m *Metrics) ObserveLedgerOperation(operation, kind string, ok bool, d time.Duration, amount float64) {
	outcome := "ok"
	if !ok {
		outcome = kind
		if outcome == "" {
			outcome = "internal"
		}
	}

	m.LedgerOperations.WithLabelValues(operation, outcome).Inc()
	m.LedgerDuration.WithLabelValues(operation).Observe(d.Seconds())
	if ok {
		m.LedgerAmount.WithLabelValues(operation).Observe(amount)
	}
}

// ObserveConsistencyCheck records the result of a ledger consistency check.
func (m *Metrics) ObserveConsistencyCheck(consistent bool) {
	result := "consistent"
	if !consistent {
		result = "inconsistent"
	}
	m.ConsistencyChecks.WithLabelValues(result).Inc()
}
