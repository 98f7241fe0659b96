// Package metrics exposes Prometheus collectors for the HTTP surface and predictions.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the service's Prometheus collectors.
type Collectors struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	predictions     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Total number of predictions by outcome",
			}, []string{"outcome"},
		),
	}

	for _, collector := range []prometheus.Collector{c.requestCount, c.requestDuration, c.predictions} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRequest records one finished HTTP request.
func (c *Collectors) ObserveRequest(path, method string, status int, elapsed time.Duration) {
	c.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObservePrediction counts a prediction outcome.
func (c *Collectors) ObservePrediction(outcome string) {
	c.predictions.WithLabelValues(outcome).Inc()
}
