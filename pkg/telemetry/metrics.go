// Package telemetry provides Prometheus metrics and logger construction for
// the watch loop.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the watch loop's collectors.
type Metrics struct {
	Cycles           prometheus.Counter
	CycleErrors      prometheus.Counter
	EntriesParsed    prometheus.Counter
	EntriesNotified  prometheus.Counter
	SpawnUnresolved  prometheus.Counter
	NotifyFailures   prometheus.Counter
	CycleDuration    prometheus.Histogram
	SeenEntriesGauge prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// gets a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Cycles:          prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_cycles_total", Help: "Number of capture/OCR/parse cycles run"}),
		CycleErrors:     prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_cycle_errors_total", Help: "Number of cycles aborted by an OCR or read error"}),
		EntriesParsed:   prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_entries_parsed_total", Help: "Spawn entries extracted from chat text"}),
		EntriesNotified: prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_entries_notified_total", Help: "New spawn entries delivered to notifiers"}),
		SpawnUnresolved: prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_spawn_unresolved_total", Help: "Entries whose masked spawn time could not be resolved"}),
		NotifyFailures:  prometheus.NewCounter(prometheus.CounterOpts{Name: "mvpwatch_notify_failures_total", Help: "Failed notifier deliveries"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mvpwatch_cycle_duration_seconds",
			Help:    "Duration of a full watch cycle in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		SeenEntriesGauge: prometheus.NewGauge(prometheus.GaugeOpts{Name: "mvpwatch_seen_entries", Help: "Entries currently held in the seen cache"}),
		gatherer:         reg,
	}

	reg.MustRegister(
		m.Cycles,
		m.CycleErrors,
		m.EntriesParsed,
		m.EntriesNotified,
		m.SpawnUnresolved,
		m.NotifyFailures,
		m.CycleDuration,
		m.SeenEntriesGauge,
	)

	return m
}

// ObserveCycle records the duration of a cycle started at start.
func (m *Metrics) ObserveCycle(start time.Time) {
	m.CycleDuration.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
