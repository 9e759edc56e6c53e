package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xandpulse/models"
	"xandpulse/utils"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func samplePods() []models.Pod {
	return []models.Pod{
		{
			Address: "10.0.0.1:9001", Pubkey: "pk-a", IsPublic: true,
			LastSeenTimestamp: fixedNow.Unix() - 30,
			Uptime:            30 * 24 * 3600, StorageCommitted: 1000, StorageUsed: 500,
			Version: "0.8.0",
		},
		{
			Address: "10.0.0.2:9001", Pubkey: "pk-b",
			LastSeenTimestamp: fixedNow.Unix() - 600,
			Uptime:            3600, StorageCommitted: 2000, StorageUsed: 1900,
			Version: "0.8.0",
		},
		{
			Address: "10.0.0.3", Pubkey: "pk-c",
			LastSeenTimestamp: fixedNow.Unix() - 7200,
			Uptime:            60, StorageCommitted: 0, StorageUsagePercent: 12,
			Version: "0.7.0",
		},
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"1.2.3.4:9001", "1.2.3.4", 9001},
		{"1.2.3.4", "1.2.3.4", 0},
		{"[::1]:6000", "::1", 6000},
		{"host:abc", "host:abc", 0},
		{"host:70000", "host:70000", 0},
		{":9000", ":9000", 0},
		{"", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			host, port := ParseAddress(tc.in)
			assert.Equal(t, tc.wantHost, host)
			assert.Equal(t, tc.wantPort, port)
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})
	pods := samplePods()
	fleet := utils.BuildFleetContext(pods)

	node := n.Normalize(pods[0], fixedNow, fleet)

	assert.Equal(t, "pk-a", node.ID)
	assert.Equal(t, "10.0.0.1", node.IP)
	assert.Equal(t, 9001, node.Port)
	assert.Equal(t, models.StatusOnline, node.Status)
	assert.Equal(t, time.Unix(fixedNow.Unix()-30, 0).UTC(), node.LastSeen)
	assert.Equal(t, pods[0], node.Pod, "raw fields carried through unchanged")
	assert.GreaterOrEqual(t, node.HealthScore, 90)

	assert.Equal(t, "1.0 kB", node.StorageCommittedDisplay)
	assert.Equal(t, "500 B", node.StorageUsedDisplay)
	assert.Equal(t, "50.0%", node.StorageUsageDisplay)
	assert.Equal(t, "30d 0h 0m", node.UptimeDisplay)

	assert.Equal(t, utils.VersionCurrent, node.VersionStatus)
	assert.False(t, node.IsUpgradeNeeded)
}

func TestNormalizer_NormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})
	pods := samplePods()
	fleet := utils.BuildFleetContext(pods)

	for _, p := range pods {
		assert.Equal(t, n.Normalize(p, fixedNow, fleet), n.Normalize(p, fixedNow, fleet))
	}
}

func TestNormalizer_NormalizeAll(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})
	pods := samplePods()

	nodes, fleet := n.NormalizeAll(pods, fixedNow)
	require.Len(t, nodes, 3)

	assert.Equal(t, "0.8.0", fleet.MajorityVersion)
	assert.Equal(t, []string{"pk-a", "pk-b", "pk-c"}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID})
	assert.Equal(t, models.StatusOnline, nodes[0].Status)
	assert.Equal(t, models.StatusDegraded, nodes[1].Status)
	assert.Equal(t, models.StatusOffline, nodes[2].Status)

	// pk-c: address without port, minority version behind the majority
	assert.Equal(t, "10.0.0.3", nodes[2].IP)
	assert.Zero(t, nodes[2].Port)
	assert.Equal(t, utils.VersionOutdated, nodes[2].VersionStatus)
	assert.True(t, nodes[2].IsUpgradeNeeded)
	assert.Equal(t, "12.0%", nodes[2].StorageUsageDisplay)

	for _, node := range nodes {
		assert.True(t, node.Status.Valid())
		assert.GreaterOrEqual(t, node.HealthScore, 0)
		assert.LessOrEqual(t, node.HealthScore, 100)
	}
}

func TestNormalizer_NormalizeAllEmpty(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})

	nodes, fleet := n.NormalizeAll(nil, fixedNow)
	assert.Empty(t, nodes)
	assert.Empty(t, fleet.MajorityVersion)
}

func TestNormalizer_NormalizeByKey(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})
	pods := samplePods()

	node, ok := n.NormalizeByKey(pods, "pk-b", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "pk-b", node.ID)

	all, _ := n.NormalizeAll(pods, fixedNow)
	assert.Equal(t, all[1], node, "single lookup scores against the whole set")

	_, ok = n.NormalizeByKey(pods, "missing", fixedNow)
	assert.False(t, ok)

	_, ok = n.NormalizeByKey(nil, "pk-a", fixedNow)
	assert.False(t, ok)

	_, ok = n.NormalizeByKey(pods, "", fixedNow)
	assert.False(t, ok)
}

func TestNormalizer_ConfiguredVersionPolicy(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{
		CurrentStable: "0.9.0",
		Deprecated:    "0.7.5",
	})
	nodes, _ := n.NormalizeAll(samplePods(), fixedNow)

	assert.Equal(t, utils.VersionOutdated, nodes[0].VersionStatus)
	assert.Equal(t, utils.VersionDeprecated, nodes[2].VersionStatus)
	assert.Equal(t, "critical", nodes[2].UpgradeSeverity)
	assert.NotEmpty(t, nodes[2].UpgradeMessage)
}

func TestNormalizer_Health(t *testing.T) {
	n := NewNormalizer(utils.DefaultScoringConfig(), utils.VersionConfig{})
	nodes, fleet := n.NormalizeAll(samplePods(), fixedNow)

	h := n.Health(nodes[0], fixedNow, fleet)
	assert.Equal(t, "pk-a", h.ID)
	assert.Equal(t, nodes[0].HealthScore, h.HealthScore)
	assert.Equal(t, "0.8.0", h.MajorityVersion)
	assert.InDelta(t, 100, h.Factors.Version, 1e-9)

	offline := n.Health(nodes[2], fixedNow, fleet)
	assert.Zero(t, offline.Factors.Recency)
	assert.InDelta(t, utils.DefaultVersionMismatchScore, offline.Factors.Version, 1e-9)
}
