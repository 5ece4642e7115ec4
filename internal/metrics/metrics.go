// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exports aggregation runs and platform searches as
// Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/jobstream/internal/search"
)

const namespace = "jobstream"

// Collector implements search.Observer on a private registry.
type Collector struct {
	registry *prometheus.Registry

	platformSearches *prometheus.CounterVec
	platformDuration *prometheus.HistogramVec
	jobsAccepted     *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	runs             *prometheus.CounterVec
	activeStreams    prometheus.Gauge
}

// NewCollector registers the jobstream metrics and the Go runtime and
// process collectors on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		platformSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_searches_total",
			Help:      "Platform searches by platform and result (ok, error, timeout, cancelled).",
		}, []string{"platform", "result"}),
		platformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "platform_search_duration_seconds",
			Help:      "Wall time of one platform search.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"platform"}),
		jobsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_accepted_total",
			Help:      "Postings delivered to clients after filtering and deduplication.",
		}, []string{"platform"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Postings dropped as duplicates of an earlier posting in the same run.",
		}, []string{"platform"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Search runs by outcome.",
		}, []string{"outcome"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Open event streams.",
		}),
	}
	c.registry.MustRegister(
		c.platformSearches,
		c.platformDuration,
		c.jobsAccepted,
		c.duplicates,
		c.runs,
		c.activeStreams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// PlatformDone implements search.Observer.
func (c *Collector) PlatformDone(platform string, accepted int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		var pe *search.PlatformError
		if errors.As(err, &pe) && (pe.Reason == search.ReasonTimeout || pe.Reason == search.ReasonCancelled) {
			result = pe.Reason
		}
	}
	c.platformSearches.WithLabelValues(platform, result).Inc()
	c.platformDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
	c.jobsAccepted.WithLabelValues(platform).Add(float64(accepted))
}

// DuplicatesDropped implements search.Observer.
func (c *Collector) DuplicatesDropped(platform string, n int) {
	c.duplicates.WithLabelValues(platform).Add(float64(n))
}

// RunDone implements search.Observer.
func (c *Collector) RunDone(outcome search.Outcome, _ int) {
	c.runs.WithLabelValues(string(outcome)).Inc()
}

// StreamOpened and StreamClosed track open event streams.
func (c *Collector) StreamOpened() { c.activeStreams.Inc() }

func (c *Collector) StreamClosed() { c.activeStreams.Dec() }
