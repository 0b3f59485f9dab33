package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signaldeck"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	quoteFetches    *prometheus.CounterVec
	quoteDuration   prometheus.Histogram
	lastPrice       *prometheus.GaugeVec
	rowsLoaded      *prometheus.GaugeVec
	rowsSkipped     *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
}

// New registers the recorder's collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		refreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Refresh cycles by resulting log status",
			},
			[]string{"status"},
		),
		refreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of a full refresh cycle in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		quoteFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quote_fetch_total",
				Help:      "Quote fetch attempts by outcome",
			},
			[]string{"result"},
		),
		quoteDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quote_fetch_duration_seconds",
				Help:      "Duration of quote fetches in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		rowsLoaded: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "log_rows_loaded",
				Help:      "Rows read from the signal log in the latest cycle",
			},
			[]string{"source"},
		),
		rowsSkipped: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "log_rows_skipped",
				Help:      "Rows dropped during normalization in the latest cycle",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordRefresh records one refresh cycle.
func (r *Recorder) RecordRefresh(status string, seconds float64) {
	r.refreshTotal.WithLabelValues(status).Inc()
	r.refreshDuration.WithLabelValues(status).Observe(seconds)
}

// RecordQuoteFetch records a quote fetch attempt.
func (r *Recorder) RecordQuoteFetch(ok bool, seconds float64) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.quoteFetches.WithLabelValues(result).Inc()
	r.quoteDuration.Observe(seconds)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordRowsLoaded(source string, n int) {
	r.rowsLoaded.WithLabelValues(source).Set(float64(n))
}

func (r *Recorder) RecordRowsSkipped(source string, n int) {
	r.rowsSkipped.WithLabelValues(source).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRefresh(string, float64)   {}
func (Nop) RecordQuoteFetch(bool, float64)  {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordRowsLoaded(string, int)    {}
func (Nop) RecordRowsSkipped(string, int)   {}
func (Nop) RecordError(string)              {}
