package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the maintenance pipeline's Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	calcDuration   *prometheus.HistogramVec
	datesAppended  prometheus.Counter
	updateFailures *prometheus.CounterVec
	apiRequests    *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		calcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ashare_index_calculation_duration_seconds",
			Help:    "Duration of sector index calculations",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		datesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashare_index_dates_appended_total",
			Help: "Total index-date rows appended by incremental maintenance",
		}),
		updateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashare_index_update_failures_total",
			Help: "Total per-date incremental update failures",
		}, []string{"index_code"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashare_api_requests_total",
			Help: "Total API requests",
		}, []string{"path", "status"}),
	}

	registry.MustRegister(m.calcDuration, m.datesAppended, m.updateFailures, m.apiRequests)
	return m
}

// ObserveCalculation records one calculation's duration; mode is "full" or
// "incremental".
func (m *Metrics) ObserveCalculation(mode string, d time.Duration) {
	m.calcDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// AddDatesAppended counts appended index-date rows.
func (m *Metrics) AddDatesAppended(n int) {
	m.datesAppended.Add(float64(n))
}

// IncUpdateFailure counts one failed incremental date.
func (m *Metrics) IncUpdateFailure(indexCode string) {
	m.updateFailures.WithLabelValues(indexCode).Inc()
}

// IncAPIRequest counts one API request.
func (m *Metrics) IncAPIRequest(path, status string) {
	m.apiRequests.WithLabelValues(path, status).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
