package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// city event pipeline.
type Metrics struct {
	RecordsReceived     prometheus.Counter
	RecordsStored       prometheus.Counter
	RecordsDeduplicated prometheus.Counter
	RecordsGeocoded     prometheus.Counter
	RecordsCategorized  prometheus.Counter
	RecordsFiltered     prometheus.Counter
	RecordErrors        *prometheus.CounterVec // labels: stage
	PipelineRunning     prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsReceived,
		m.RecordsStored,
		m.RecordsDeduplicated,
		m.RecordsGeocoded,
		m.RecordsCategorized,
		m.RecordsFiltered,
		m.RecordErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_received_total",
			Help:      "Total event records read from the source topic.",
		}),
		RecordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_stored_total",
			Help:      "Total processed records handed to the sink.",
		}),
		RecordsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_deduplicated_total",
			Help:      "Total records marked as duplicates of an earlier record.",
		}),
		RecordsGeocoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_geocoded_total",
			Help:      "Total records that gained coordinates from geocoding.",
		}),
		RecordsCategorized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_categorized_total",
			Help:      "Total records assigned a subtype.",
		}),
		RecordsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "records_filtered_total",
			Help:      "Total records dropped by the quality cutoff.",
		}),
		RecordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "record_errors_total",
			Help:      "Per-record stage failures by stage name.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_etl",
			Name:      "batch_size",
			Help:      "Number of records per batch extracted from the source.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch process-and-store cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_etl",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "city_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_etl",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}
