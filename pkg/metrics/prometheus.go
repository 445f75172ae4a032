package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsProcessed *prometheus.CounterVec
	errorsDropped   prometheus.Counter
	alertsSent      *prometheus.CounterVec
	anomalies       *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		errorsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_errors_processed_total",
				Help: "Total number of error records processed",
			},
			[]string{"severity", "category"},
		),
		errorsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketwatch_errors_dropped_total",
				Help: "Total number of error records dropped on queue overflow",
			},
		),
		alertsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_alerts_dispatched_total",
				Help: "Total number of alert deliveries per channel and outcome",
			},
			[]string{"channel", "ok"},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketwatch_anomalies_total",
				Help: "Total number of detected market anomalies",
			},
			[]string{"symbol", "kind"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketwatch_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordErrorProcessed records one processed error record.
func (r *Recorder) RecordErrorProcessed(severity, category string) {
	r.errorsProcessed.WithLabelValues(severity, category).Inc()
}

// RecordErrorDropped records a queue-overflow drop.
func (r *Recorder) RecordErrorDropped() {
	r.errorsDropped.Inc()
}

// RecordAlertDispatched records one channel delivery attempt.
func (r *Recorder) RecordAlertDispatched(channel string, ok bool) {
	r.alertsSent.WithLabelValues(channel, strconv.FormatBool(ok)).Inc()
}

// RecordAnomaly records a detected anomaly.
func (r *Recorder) RecordAnomaly(symbol, kind string) {
	r.anomalies.WithLabelValues(symbol, kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
