// Package metrics exposes Prometheus collectors for the catalog.
// Labels stay low-cardinality: outcome and source only, never movie names.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	PopulationTasks   *prometheus.CounterVec
	PopulationPending prometheus.Gauge
	TaskDuration      prometheus.Histogram
	ReadSource        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PopulationTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_population_tasks_total",
			Help: "Population tasks finished, by outcome (inserted, skipped, failed).",
		}, []string{"outcome"}),
		PopulationPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_population_queue_pending",
			Help: "Population tasks waiting for the worker.",
		}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_population_task_duration_seconds",
			Help:    "Time spent on one population task, lookup plus insert.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ReadSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_read_source_total",
			Help: "List requests answered, by source (seed, store).",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.PopulationTasks,
		m.PopulationPending,
		m.TaskDuration,
		m.ReadSource,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRead counts one list answer. Safe on a nil receiver.
func (m *Metrics) ObserveRead(source string) {
	if m == nil {
		return
	}
	m.ReadSource.WithLabelValues(source).Inc()
}
