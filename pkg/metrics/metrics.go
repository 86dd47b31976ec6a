// Package metrics exports resolution metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives pipeline events.
type Recorder interface {
	RecordResolution(expert, source, outcome string, elapsed time.Duration)
	RecordRetry(class string)
	RecordCacheLookup(hit bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordResolution(string, string, string, time.Duration) {}
func (Nop) RecordRetry(string) {}
func (Nop) RecordCacheLookup(bool) {}

// Prometheus records events on a private registry.
type Prometheus struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

// NewPrometheus creates a Prometheus recorder. A nil registry creates a new one.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	p := &Prometheus{
		registry: registry,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Name:      "resolutions_total",
			Help:      "Resolved queries by expert, answering source and outcome.",
		}, []string{"expert", "source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sage",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving a query.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"expert"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Name:      "generation_retries_total",
			Help:      "Failed generation attempts by retry class.",
		}, []string{"class"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(p.resolutions, p.duration, p.retries, p.cache)
	return p
}

// RecordResolution counts one finished resolution.
func (p *Prometheus) RecordResolution(expert, source, outcome string, elapsed time.Duration) {
	if source == "" {
		source = "none"
	}
	p.resolutions.WithLabelValues(expert, source, outcome).Inc()
	p.duration.WithLabelValues(expert).Observe(elapsed.Seconds())
}

// RecordRetry counts one failed generation attempt.
func (p *Prometheus) RecordRetry(class string) {
	p.retries.WithLabelValues(class).Inc()
}

// RecordCacheLookup counts one cache lookup.
func (p *Prometheus) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
