package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "laundry"

var (
	counterDesc = prometheus.NewDesc(namespace+"_operations_total",
		"Operation counters.", []string{"name"}, nil)
	gaugeDesc = prometheus.NewDesc(namespace+"_gauge",
		"Point in time values.", []string{"name"}, nil)
	timerCountDesc = prometheus.NewDesc(namespace+"_timer_count",
		"Number of timed operations.", []string{"name"}, nil)
	timerTotalDesc = prometheus.NewDesc(namespace+"_timer_milliseconds_total",
		"Total time spent in timed operations.", []string{"name"}, nil)
	errorTotalDesc = prometheus.NewDesc(namespace+"_outcomes_total",
		"Operation outcomes.", []string{"name", "outcome"}, nil)
	healthDesc = prometheus.NewDesc(namespace+"_component_healthy",
		"Component health, 1 when healthy.", []string{"component"}, nil)
	uptimeDesc = prometheus.NewDesc(namespace+"_uptime_seconds",
		"Service uptime.", nil, nil)
)

// Collector exposes a Metrics snapshot to Prometheus
type Collector struct {
	metrics *Metrics
}

// NewCollector wraps m for a Prometheus registry
func NewCollector(m *Metrics) *Collector {
	return &Collector{metrics: m}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- counterDesc
	ch <- gaugeDesc
	ch <- timerCountDesc
	ch <- timerTotalDesc
	ch <- errorTotalDesc
	ch <- healthDesc
	ch <- uptimeDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, v := range c.metrics.GetCounters() {
		ch <- prometheus.MustNewConstMetric(counterDesc, prometheus.CounterValue, float64(v), sanitize(name))
	}
	for name, v := range c.metrics.GetGauges() {
		ch <- prometheus.MustNewConstMetric(gaugeDesc, prometheus.GaugeValue, float64(v), sanitize(name))
	}
	for name, t := range c.metrics.GetTimers() {
		ch <- prometheus.MustNewConstMetric(timerCountDesc, prometheus.CounterValue, float64(t.Count), sanitize(name))
		ch <- prometheus.MustNewConstMetric(timerTotalDesc, prometheus.CounterValue, float64(t.TotalTimeMs), sanitize(name))
	}
	for name, er := range c.metrics.GetErrorRates() {
		ch <- prometheus.MustNewConstMetric(errorTotalDesc, prometheus.CounterValue, float64(er.Total-er.Errors), sanitize(name), "success")
		ch <- prometheus.MustNewConstMetric(errorTotalDesc, prometheus.CounterValue, float64(er.Errors), sanitize(name), "error")
	}
	for name, ok := range c.metrics.GetHealthChecks() {
		var v float64
		if ok {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(healthDesc, prometheus.GaugeValue, v, sanitize(name))
	}
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, float64(c.metrics.GetUptimeSeconds()))
}

// Handler returns a scrape handler for a registry holding the collector and the Go runtime metrics
func Handler(m *Metrics) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		NewCollector(m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
