package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"xandpulse/models"
)

// Metrics exports the latest NetworkStats as Prometheus gauges.
type Metrics struct {
	nodes        *prometheus.GaugeVec
	versions     *prometheus.GaugeVec
	storage      *prometheus.GaugeVec
	utilization  prometheus.Gauge
	avgHealth    prometheus.Gauge
	avgUptime    prometheus.Gauge
	refreshes    *prometheus.CounterVec
	lastRefreshS prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "nodes",
			Help:      "Number of pNodes by status.",
		}, []string{"status"}),
		versions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "node_versions",
			Help:      "Number of pNodes by reported software version.",
		}, []string{"version"}),
		storage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "storage_bytes",
			Help:      "Network storage in bytes, committed or used.",
		}, []string{"kind"}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "storage_utilization_ratio",
			Help:      "Used over committed storage across the network.",
		}),
		avgHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "average_health_score",
			Help:      "Mean node health score (0-100).",
		}),
		avgUptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "average_uptime_seconds",
			Help:      "Mean continuous node uptime.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xandpulse",
			Name:      "refreshes_total",
			Help:      "Snapshot refreshes by result.",
		}, []string{"result"}),
		lastRefreshS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xandpulse",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
	}

	reg.MustRegister(m.nodes, m.versions, m.storage, m.utilization,
		m.avgHealth, m.avgUptime, m.refreshes, m.lastRefreshS)
	return m
}

// Observe publishes stats. A nil Metrics is a no-op.
func (m *Metrics) Observe(stats models.NetworkStats) {
	if m == nil {
		return
	}

	for _, status := range []models.NodeStatus{models.StatusOnline, models.StatusDegraded, models.StatusOffline} {
		m.nodes.WithLabelValues(string(status)).Set(float64(stats.StatusCount(status)))
	}

	// Versions come and go between refreshes
	m.versions.Reset()
	for v, n := range stats.VersionCounts {
		m.versions.WithLabelValues(v).Set(float64(n))
	}

	m.storage.WithLabelValues("committed").Set(float64(stats.TotalStorageCommitted))
	m.storage.WithLabelValues("used").Set(float64(stats.TotalStorageUsed))
	m.utilization.Set(stats.Utilization)
	m.avgHealth.Set(stats.AverageHealthScore)
	m.avgUptime.Set(stats.AverageUptime)
	m.lastRefreshS.Set(float64(stats.LastUpdated.Unix()))
	m.refreshes.WithLabelValues("ok").Inc()
}

// RefreshFailed counts a failed refresh. A nil Metrics is a no-op.
func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues("error").Inc()
}
