package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "airingbot"

// Cycle results
const (
	CycleOK         = "ok"
	CycleStoreError = "store_error"
)

// Notification results
const (
	NotificationSent       = "sent"
	NotificationFailed     = "failed"
	NotificationSuppressed = "suppressed"
)

// Metrics groups the Prometheus collectors of the check engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	entriesChecked prometheus.Counter
	lookupFailures prometheus.Counter
	notifications  *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Check cycles by result.",
		}, []string{"result"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of check cycles.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		entriesChecked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_checked_total",
			Help:      "Watchlist entries whose metadata was fetched.",
		}),
		lookupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_failures_total",
			Help:      "Metadata lookups that failed.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) EntryChecked() {
	if m == nil {
		return
	}
	m.entriesChecked.Inc()
}

func (m *Metrics) LookupFailed() {
	if m == nil {
		return
	}
	m.lookupFailures.Inc()
}

func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
