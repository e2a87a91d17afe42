package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// EngineMetrics records request outcomes for the recommendation engine.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	degradedBranches *prometheus.CounterVec
	exposureFailures prometheus.Counter
}

func NewEngineMetrics(reg prometheus.Registerer, logger *logrus.Logger) *EngineMetrics {
	m := &EngineMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Recommendation requests by mode and outcome",
		}, []string{"mode", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent producing recommendations",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		degradedBranches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_hybrid_degraded_branches_total",
			Help: "Hybrid branches that failed and were treated as empty",
		}, []string{"branch"}),
		exposureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recommendation_exposure_failures_total",
			Help: "Exposure records that could not be delivered",
		}),
	}

	m.requests = register(reg, logger, m.requests)
	m.latency = register(reg, logger, m.latency)
	m.degradedBranches = register(reg, logger, m.degradedBranches)
	m.exposureFailures = register(reg, logger, m.exposureFailures)

	return m
}

// register tolerates collectors that are already registered and reuses the existing one.
func register[C prometheus.Collector](reg prometheus.Registerer, logger *logrus.Logger, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
			return c
		}
		logger.WithError(err).Warn("Failed to register engine metric")
	}
	return c
}

func (m *EngineMetrics) ObserveRequest(mode string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.latency.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

func (m *EngineMetrics) BranchDegraded(branch string) {
	if m == nil {
		return
	}
	m.degradedBranches.WithLabelValues(branch).Inc()
}

func (m *EngineMetrics) ExposureFailed() {
	if m == nil {
		return
	}
	m.exposureFailures.Inc()
}
