package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"luster/internal/jobs"
	"luster/internal/monitor"
)

type metrics struct {
	registry      *prometheus.Registry
	jobsSubmitted prometheus.Counter
	artifactBytes prometheus.Counter
}

// newMetrics builds a per-server registry so multiple instances can coexist
// in one process (tests in particular).
func newMetrics(store *jobs.Store, hub *monitor.Hub) *metrics {
	registry := prometheus.NewRegistry()

	m := &metrics{
		registry: registry,
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luster_jobs_submitted_total",
			Help: "Uploads accepted and registered as jobs.",
		}),
		artifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "luster_artifact_bytes_served_total",
			Help: "Result artifact bytes served to clients.",
		}),
	}
	registry.MustRegister(m.jobsSubmitted, m.artifactBytes)

	if hub != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "luster_active_subscriptions",
			Help: "Live status monitoring subscriptions.",
		}, func() float64 {
			return float64(hub.ActiveCount())
		}))
	}
	if store != nil {
		registry.MustRegister(&jobStatusCollector{store: store})
	}
	return m
}

// jobStatusCollector exports registry counts per job status on scrape.
type jobStatusCollector struct {
	store *jobs.Store
}

var jobStatusDesc = prometheus.NewDesc(
	"luster_jobs",
	"Jobs in the registry by status.",
	[]string{"status"},
	nil,
)

func (c *jobStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobStatusDesc
}

func (c *jobStatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		return
	}
	for _, status := range jobs.AllStatuses() {
		ch <- prometheus.MustNewConstMetric(jobStatusDesc, prometheus.GaugeValue, float64(stats[status]), string(status))
	}
}
