package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xandpulse/models"
)

func statNode(status models.NodeStatus, version string, committed, used int64) models.Node {
	return models.Node{
		Pod:    models.Pod{Version: version, StorageCommitted: committed, StorageUsed: used},
		Status: status,
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)

	assert.Zero(t, stats.TotalNodes)
	assert.Zero(t, stats.Utilization)
	assert.Zero(t, stats.AverageUptime)
	assert.Zero(t, stats.AverageHealthScore)
	assert.NotNil(t, stats.VersionCounts)
	assert.Empty(t, stats.VersionCounts)
}

func TestAggregate_AllSameStatus(t *testing.T) {
	nodes := []models.Node{
		statNode(models.StatusDegraded, "1.0.0", 100, 10),
		statNode(models.StatusDegraded, "1.0.0", 100, 10),
		statNode(models.StatusDegraded, "1.0.0", 100, 10),
	}
	stats := Aggregate(nodes)

	assert.Equal(t, 3, stats.TotalNodes)
	assert.Equal(t, 3, stats.DegradedNodes)
	assert.Equal(t, 3, stats.StatusCount(models.StatusDegraded))
	assert.Zero(t, stats.StatusCount(models.StatusOnline))
	assert.Zero(t, stats.StatusCount(models.StatusOffline))
	assert.Zero(t, stats.StatusCount("unknown"))
}

func TestAggregate_Totals(t *testing.T) {
	nodes := []models.Node{
		statNode(models.StatusOnline, "1.0.0", 1000, 400),
		statNode(models.StatusOnline, "1.0.0", 1000, 100),
		statNode(models.StatusDegraded, "0.9.0", 2000, 500),
		statNode(models.StatusOffline, "", 0, 0),
	}
	nodes[0].IsPublic = true
	nodes[0].Uptime, nodes[1].Uptime, nodes[2].Uptime, nodes[3].Uptime = 100, 200, 300, -50
	nodes[0].HealthScore, nodes[1].HealthScore, nodes[2].HealthScore, nodes[3].HealthScore = 90, 80, 50, 0

	stats := Aggregate(nodes)

	assert.Equal(t, 4, stats.TotalNodes)
	assert.Equal(t, stats.TotalNodes, stats.OnlineNodes+stats.DegradedNodes+stats.OfflineNodes)
	assert.Equal(t, 2, stats.OnlineNodes)
	assert.Equal(t, 1, stats.DegradedNodes)
	assert.Equal(t, 1, stats.OfflineNodes)
	assert.Equal(t, 1, stats.PublicNodes)
	assert.Equal(t, 3, stats.PrivateNodes)

	assert.Equal(t, int64(4000), stats.TotalStorageCommitted)
	assert.Equal(t, int64(1000), stats.TotalStorageUsed)
	assert.InDelta(t, 0.25, stats.Utilization, 1e-9)
	assert.InDelta(t, 150, stats.AverageUptime, 1e-9, "negative uptime counts as zero")
	assert.InDelta(t, 55, stats.AverageHealthScore, 1e-9)

	assert.Equal(t, map[string]int{"1.0.0": 2, "0.9.0": 1, "": 1}, stats.VersionCounts)
	assert.Equal(t, "1.0.0", stats.MajorityVersion)

	sum := 0
	for _, n := range stats.VersionCounts {
		sum += n
	}
	assert.Equal(t, stats.TotalNodes, sum)
}

func TestAggregate_VersionKeysAreExact(t *testing.T) {
	nodes := []models.Node{
		statNode(models.StatusOnline, "", 0, 0),
		statNode(models.StatusOnline, "", 0, 0),
		statNode(models.StatusOnline, "", 0, 0),
		statNode(models.StatusOnline, "unknown", 0, 0),
		statNode(models.StatusOnline, "unknown", 0, 0),
		statNode(models.StatusOnline, "0.8.0", 0, 0),
	}
	stats := Aggregate(nodes)

	assert.Equal(t, map[string]int{"": 3, "unknown": 2, "0.8.0": 1}, stats.VersionCounts)
	assert.Equal(t, "unknown", stats.MajorityVersion, "a missing version never wins")
}

func TestAggregate_TwoVersionHistogram(t *testing.T) {
	nodes := []models.Node{
		statNode(models.StatusOnline, "A", 0, 0),
		statNode(models.StatusOnline, "A", 0, 0),
		statNode(models.StatusOnline, "B", 0, 0),
	}
	stats := Aggregate(nodes)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, stats.VersionCounts)
}

func TestAggregate_InvalidStatusCountsAsOffline(t *testing.T) {
	stats := Aggregate([]models.Node{statNode("bogus", "1.0.0", 0, 0)})
	assert.Equal(t, 1, stats.OfflineNodes)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	nodes := []models.Node{
		statNode(models.StatusOnline, "1.0.0", 1000, 400),
		statNode(models.StatusOffline, "", -10, -5),
	}
	before := append([]models.Node(nil), nodes...)

	_ = Aggregate(nodes)
	assert.Equal(t, before, nodes)
}

func TestUtilization(t *testing.T) {
	assert.Zero(t, Utilization(100, 0))
	assert.Zero(t, Utilization(0, 100))
	assert.Zero(t, Utilization(-5, 100))
	assert.InDelta(t, 0.5, Utilization(50, 100), 1e-9)
	assert.Equal(t, 1.0, Utilization(500, 100))
}
