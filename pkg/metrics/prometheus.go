package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal  *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	batchProgress prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betatool_provider_fetches_total",
				Help: "Total number of market data provider calls",
			},
			[]string{"operation", "result"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betatool_cache_events_total",
				Help: "Cache hits and misses per layer",
			},
			[]string{"layer", "event"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "betatool_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "betatool_last_price",
				Help: "Last recorded price for an instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "betatool_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		batchProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "betatool_batch_progress_ratio",
				Help: "Progress of the running batch beta computation (0..1)",
			},
		),
	}
}

// RecordFetch records a provider call outcome.
func (r *Recorder) RecordFetch(operation, result string) {
	r.fetchesTotal.WithLabelValues(operation, result).Inc()
}

// RecordCacheEvent records a hit or miss for a cache layer.
func (r *Recorder) RecordCacheEvent(layer, event string) {
	r.cacheEvents.WithLabelValues(layer, event).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBatchProgress records completion ratio of the batch computation.
func (r *Recorder) RecordBatchProgress(done, total int) {
	if total <= 0 {
		return
	}
	r.batchProgress.Set(float64(done) / float64(total))
}
