package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the prompt engine.
type Metrics struct {
	Resolutions          *prometheus.CounterVec
	Conflicts            *prometheus.CounterVec
	DuplicatesReconciled prometheus.Counter
	PurgedAssignments    *prometheus.CounterVec
	EligibilityKept      *prometheus.CounterVec
	ResolveErrors        prometheus.Counter
	ResolveLatency       prometheus.Histogram
	ScheduledGroups      *prometheus.CounterVec
}

// NewMetrics registers the instruments with reg. A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Prompt resolutions by the tier that produced the answer.",
		}, []string{"tier"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Uniqueness conflicts resolved by re-reading the winner, by kind.",
		}, []string{"kind"}),
		DuplicatesReconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_reconciled_total",
			Help:      "Duplicate general assignments deleted by the reconciler.",
		}),
		PurgedAssignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_assignments_total",
			Help:      "Invalid answerless assignments deleted, by reason.",
		}, []string{"reason"}),
		EligibilityKept: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eligibility_kept_total",
			Help:      "Invalid assignments kept because they already have answers, by reason.",
		}, []string{"reason"}),
		ResolveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_errors_total",
			Help:      "Resolutions that failed because the store was unavailable.",
		}),
		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a prompt.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ScheduledGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_groups_total",
			Help:      "Groups processed by the daily scheduler, by outcome.",
		}, []string{"status"}),
	}
}

// NewNopMetrics returns instruments bound to a private registry, for tests and tools
func NewNopMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

func (m *Metrics) ObserveResolve(d time.Duration) {
	m.ResolveLatency.Observe(d.Seconds())
}

// MetricsHandler serves the instruments registered with g
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
