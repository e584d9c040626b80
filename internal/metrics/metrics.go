// Package metrics exposes Prometheus instrumentation for the curation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vcs"

// Metrics tracks curation writes, consistency outcomes, annotation health and cache use.
type Metrics struct {
	VariantsRegistered   prometheus.Counter
	CurationsRecorded    *prometheus.CounterVec
	EvidenceRecorded     *prometheus.CounterVec
	ConsistencyConflicts prometheus.Counter
	UpdateConflicts      prometheus.Counter
	AnnotationFailures   prometheus.Counter
	CacheLookups         *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
}

// New registers all metrics with reg. Passing a fresh prometheus.NewRegistry() keeps tests
// independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VariantsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_registered_total",
			Help:      "Total number of variant aggregates created",
		}),
		CurationsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curations_recorded_total",
			Help:      "Total number of accepted curations by clinical significance",
		}, []string{"significance"}),
		EvidenceRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_recorded_total",
			Help:      "Total number of accepted evidence items by direction",
		}, []string{"direction"}),
		ConsistencyConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_conflicts_total",
			Help:      "Curation scopes found in conflict after an evidence write",
		}),
		UpdateConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_conflicts_total",
			Help:      "Optimistic-lock conflicts hit while persisting an aggregate",
		}),
		AnnotationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_failures_total",
			Help:      "Annotation calls that failed during registration or re-annotation",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_cache_lookups_total",
			Help:      "Annotation cache lookups by tier and result",
		}, []string{"tier", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of curation service operations",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation", "outcome"}),
	}
}

// ObserveOperation records the duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// CacheHit records a hit in the given cache tier.
func (m *Metrics) CacheHit(tier string) {
	m.CacheLookups.WithLabelValues(tier, "hit").Inc()
}

// CacheMiss records a miss in the given cache tier.
func (m *Metrics) CacheMiss(tier string) {
	m.CacheLookups.WithLabelValues(tier, "miss").Inc()
}
