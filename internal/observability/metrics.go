package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shoreline_tide"

// Metrics holds the Prometheus counters, histograms, and gauges for tide correction runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec // labels: outcome={success,error}
	RunFailures    *prometheus.CounterVec // labels: kind={coverage,no_ceiling,config,input,sink,canceled}
	RowsCorrected  prometheus.Counter
	TidesResolved  prometheus.Counter
	SinkWrites     *prometheus.CounterVec // labels: sink, outcome={success,error}
	LastSuccessRun prometheus.Gauge

	ResolveDuration prometheus.Histogram
	CorrectDuration prometheus.Histogram
	RunDuration     prometheus.Histogram

	// Tide series cache metrics.
	TideCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all correction metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all correction metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics(true)
	reg.MustRegister(
		m.RunsTotal,
		m.RunFailures,
		m.RowsCorrected,
		m.TidesResolved,
		m.SinkWrites,
		m.LastSuccessRun,
		m.ResolveDuration,
		m.CorrectDuration,
		m.RunDuration,
		m.TideCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	durations := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10}

	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Correction runs by outcome."),
		}, []string{"outcome"}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      help("Failed correction runs by failure kind."),
		}, []string{"kind"}),
		RowsCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_corrected_total",
			Help:      help("Shoreline rows written with a tide correction."),
		}),
		TidesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tides_resolved_total",
			Help:      help("Acquisition timestamps matched to a tide level."),
		}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      help("Corrected table writes by sink and outcome."),
		}, []string{"sink", "outcome"}),
		LastSuccessRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      help("Unix time of the last successful correction run."),
		}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      help("Duration of matching acquisitions to tide levels."),
			Buckets:   durations,
		}),
		CorrectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correct_duration_seconds",
			Help:      help("Duration of applying the correction to all transects."),
			Buckets:   durations,
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete load-correct-write run."),
			Buckets:   durations,
		}),
		TideCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tide_cache_total",
			Help:      help("Tide series cache lookups by result."),
		}, []string{"result"}),
	}
}
