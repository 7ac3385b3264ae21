// Package metrics provides Prometheus metrics for the marketing agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	PostsTotal       *prometheus.CounterVec
	GenerationTotal  *prometheus.CounterVec
	EngagementTotal  *prometheus.CounterVec
	RepliesTotal     *prometheus.CounterVec
	ThrottledTotal   *prometheus.CounterVec
	GenerateDuration prometheus.Histogram
	CacheEntries     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		PostsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_posts_total",
				Help: "Total posts published by content kind and status.",
			},
			[]string{"kind", "status"},
		),
		GenerationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_generation_total",
				Help: "Generation outcomes by source tier (cache, provider, template, none).",
			},
			[]string{"source"},
		),
		EngagementTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_engagement_total",
				Help: "Engagement actions taken by action and status.",
			},
			[]string{"action", "status"},
		),
		RepliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_replies_total",
				Help: "Mention replies by sentiment band.",
			},
			[]string{"sentiment"},
		),
		ThrottledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_budget_throttled_total",
				Help: "Operations skipped because a surface budget was throttled.",
			},
			[]string{"surface"},
		),
		GenerateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bot_generate_duration_seconds",
				Help:    "AI generation call duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bot_cache_entries",
				Help: "Fresh entries in the generation cache.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.PostsTotal)
	reg.MustRegister(m.GenerationTotal)
	reg.MustRegister(m.EngagementTotal)
	reg.MustRegister(m.RepliesTotal)
	reg.MustRegister(m.ThrottledTotal)
	reg.MustRegister(m.GenerateDuration)
	reg.MustRegister(m.CacheEntries)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPost increments the post counter.
func (m *Metrics) RecordPost(kind, status string) {
	m.PostsTotal.WithLabelValues(kind, status).Inc()
}

// RecordGeneration increments the generation-source counter.
func (m *Metrics) RecordGeneration(source string) {
	m.GenerationTotal.WithLabelValues(source).Inc()
}

// RecordEngagement increments the engagement counter.
func (m *Metrics) RecordEngagement(action, status string) {
	m.EngagementTotal.WithLabelValues(action, status).Inc()
}

// RecordReply increments the reply counter.
func (m *Metrics) RecordReply(sentiment string) {
	m.RepliesTotal.WithLabelValues(sentiment).Inc()
}

// RecordThrottled increments the throttled-surface counter.
func (m *Metrics) RecordThrottled(surface string) {
	m.ThrottledTotal.WithLabelValues(surface).Inc()
}

// ObserveGenerateDuration records one generation call duration.
func (m *Metrics) ObserveGenerateDuration(seconds float64) {
	m.GenerateDuration.Observe(seconds)
}

// SetCacheEntries sets the fresh cache entry gauge.
func (m *Metrics) SetCacheEntries(count float64) {
	m.CacheEntries.Set(count)
}
