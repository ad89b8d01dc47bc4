package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the QC
// aggregation pipeline.
type Metrics struct {
	BatchesConsumed prometheus.Counter
	ReportsProduced prometheus.Counter
	BatchErrors     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	ReportDuration          prometheus.Histogram

	// FlaggedObservations counts globally reduced observations by QC
	// category. Labels: obstype, category.
	FlaggedObservations *prometheus.CounterVec
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BatchesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obs_qc",
			Name:      "batches_consumed_total",
			Help:      "Total observation batches read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obs_qc",
			Name:      "reports_produced_total",
			Help:      "Total QC summary reports written to the sink topic.",
		}),
		BatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "obs_qc",
			Name:      "batch_errors_total",
			Help:      "Total batches skipped because they could not be processed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "obs_qc",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obs_qc",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obs_qc",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-aggregate-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obs_qc",
			Name:      "report_duration_seconds",
			Help:      "Duration of the collective reduction and report assembly.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		FlaggedObservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "obs_qc",
			Name:      "flagged_observations_total",
			Help:      "Globally reduced observation counts by obstype and QC category.",
		}, []string{"obstype", "category"}),
	}

	prometheus.MustRegister(
		m.BatchesConsumed,
		m.ReportsProduced,
		m.BatchErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ReportDuration,
		m.FlaggedObservations,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BatchesConsumed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obs_qc", Name: "batches_consumed_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obs_qc", Name: "reports_produced_total"}),
		BatchErrors:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "obs_qc", Name: "batch_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "obs_qc", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "obs_qc", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "obs_qc", Name: "batch_processing_duration_seconds"}),
		ReportDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "obs_qc", Name: "report_duration_seconds"}),
		FlaggedObservations:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "obs_qc", Name: "flagged_observations_total"}, []string{"obstype", "category"}),
	}
}
