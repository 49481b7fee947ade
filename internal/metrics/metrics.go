// Package metrics collects and exposes Prometheus metrics for the sync
// pipeline and feed assembly.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records pipeline metrics against a Prometheus registry.
type Collector struct {
	contentPushes     *prometheus.CounterVec
	contentSkips      *prometheus.CounterVec
	interactionEvents *prometheus.CounterVec
	hydrationMissing  prometheus.Counter
	pushLatency       prometheus.Histogram
	feedLatency       prometheus.Histogram

	handler http.Handler
}

// Content push outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Content skip reasons.
const (
	SkipHashMatch  = "hash_match"
	SkipEcho       = "echo"
	SkipSuperseded = "superseded"
	SkipDeleted    = "deleted"
)

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		contentPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_content_pushes_total",
			Help: "Content pushes to the ranking backend by outcome.",
		}, []string{"outcome"}),
		contentSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_content_skips_total",
			Help: "Content write events skipped before pushing, by reason.",
		}, []string{"reason"}),
		interactionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_interaction_events_total",
			Help: "Interaction delta events forwarded, by signal type and outcome.",
		}, []string{"etype", "outcome"}),
		hydrationMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedsync_hydration_missing_total",
			Help: "Ranked ids that could not be hydrated from the store.",
		}),
		pushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedsync_content_push_seconds",
			Help:    "Latency of content pushes including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedsync_feed_page_seconds",
			Help:    "Latency of assembling one ranked feed page.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.contentPushes,
		c.contentSkips,
		c.interactionEvents,
		c.hydrationMissing,
		c.pushLatency,
		c.feedLatency,
	)

	c.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return c
}

// NewNopCollector returns a Collector backed by a private registry, for
// tests.
func NewNopCollector() *Collector {
	return NewCollector(prometheus.NewRegistry())
}

// Handler returns the /metrics HTTP handler.
func (c *Collector) Handler() http.Handler {
	return c.handler
}

// RecordContentPush records a push outcome and its latency.
func (c *Collector) RecordContentPush(outcome string, elapsed time.Duration) {
	c.contentPushes.WithLabelValues(outcome).Inc()
	c.pushLatency.Observe(elapsed.Seconds())
}

// RecordContentSkip records a write event skipped before pushing.
func (c *Collector) RecordContentSkip(reason string) {
	c.contentSkips.WithLabelValues(reason).Inc()
}

// RecordInteractionEvent records one forwarded delta event.
func (c *Collector) RecordInteractionEvent(etype, outcome string) {
	c.interactionEvents.WithLabelValues(etype, outcome).Inc()
}

// RecordHydrationMissing records ranked ids dropped during hydration.
func (c *Collector) RecordHydrationMissing(count int) {
	c.hydrationMissing.Add(float64(count))
}

// RecordFeedLatency records the time to assemble one feed page.
func (c *Collector) RecordFeedLatency(elapsed time.Duration) {
	c.feedLatency.Observe(elapsed.Seconds())
}
