package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"xandpulse/models"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe(models.NetworkStats{})
		m.RefreshFailed()
	})
}

func TestMetrics_VersionsReset(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Observe(models.NetworkStats{VersionCounts: map[string]int{"0.7.0": 4}})
	m.Observe(models.NetworkStats{VersionCounts: map[string]int{"0.8.0": 2}})

	assert.Equal(t, 1, testutil.CollectAndCount(m.versions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.versions.WithLabelValues("0.8.0")))
}
