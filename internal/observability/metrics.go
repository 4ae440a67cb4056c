package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "floodrisk"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Assessment metrics.
	Assessments        *prometheus.CounterVec   // labels: strategy, outcome={success,degraded,error}
	AssessmentDuration *prometheus.HistogramVec // labels: strategy

	// Monitor metrics.
	MonitorRunning        prometheus.Gauge
	MonitorSweeps         prometheus.Counter
	MonitorLocationErrors prometheus.Counter
	MonitorSweepDuration  prometheus.Histogram
	MonitorTier           *prometheus.GaugeVec // labels: location; value is the tier rank 0-3

	// Alert metrics.
	AlertsPublished prometheus.Counter
	AlertErrors     prometheus.Counter

	// Upstream data source metrics.
	ExternalRequests *prometheus.CounterVec   // labels: source={nasa_power,openweather}, outcome={success,error}
	ExternalDuration *prometheus.HistogramVec // labels: source
	CacheLookups     *prometheus.CounterVec   // labels: source, result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Risk assessments by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a risk assessment including data lookups.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the monitor loop is active, 0 when stopped.",
		}),
		MonitorSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_sweeps_total",
			Help:      "Completed monitoring sweeps.",
		}),
		MonitorLocationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_location_errors_total",
			Help:      "Monitored locations skipped because of a fetch or scoring failure.",
		}),
		MonitorSweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_sweep_duration_seconds",
			Help:      "Duration of a full sweep over monitored locations.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MonitorTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_tier",
			Help:      "Latest two-factor tier per location (0 Minimal, 1 Low, 2 Medium, 3 High).",
		}, []string{"location"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Flood alerts written to the alert topic.",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_errors_total",
			Help:      "Flood alerts that failed policy evaluation or publishing.",
		}),
		ExternalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Upstream data requests by source and outcome.",
		}, []string{"source", "outcome"}),
		ExternalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_request_duration_seconds",
			Help:      "Upstream data request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Series cache lookups by source and result.",
		}, []string{"source", "result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Assessments,
		m.AssessmentDuration,
		m.MonitorRunning,
		m.MonitorSweeps,
		m.MonitorLocationErrors,
		m.MonitorSweepDuration,
		m.MonitorTier,
		m.AlertsPublished,
		m.AlertErrors,
		m.ExternalRequests,
		m.ExternalDuration,
		m.CacheLookups,
	}
}
