package services

import (
	"xandpulse/models"
	"xandpulse/utils"
)

// Aggregate reduces annotated nodes to network-wide statistics. It reads the
// slice only and allocates a fresh result on every call; an empty input gives
// zeroed stats with an empty version histogram.
func Aggregate(nodes []models.Node) models.NetworkStats {
	aggr := models.NetworkStats{
		TotalNodes:    len(nodes),
		VersionCounts: make(map[string]int),
	}

	if len(nodes) == 0 {
		return aggr
	}

	var sumUptime float64
	var sumHealth float64

	for i := range nodes {
		node := &nodes[i]

		// Count by status
		switch node.Status {
		case models.StatusOnline:
			aggr.OnlineNodes++
		case models.StatusDegraded:
			aggr.DegradedNodes++
		default:
			aggr.OfflineNodes++
		}

		if node.IsPublic {
			aggr.PublicNodes++
		} else {
			aggr.PrivateNodes++
		}

		// Negative byte counts are malformed; they contribute nothing
		aggr.TotalStorageCommitted += max(node.StorageCommitted, 0)
		aggr.TotalStorageUsed += max(node.StorageUsed, 0)

		sumUptime += float64(max(node.Uptime, 0))
		sumHealth += float64(node.HealthScore)

		// Exact strings; a missing version is its own "" bucket
		aggr.VersionCounts[node.Version]++
	}

	aggr.AverageUptime = sumUptime / float64(len(nodes))
	aggr.AverageHealthScore = sumHealth / float64(len(nodes))
	aggr.Utilization = Utilization(aggr.TotalStorageUsed, aggr.TotalStorageCommitted)
	aggr.MajorityVersion = utils.MajorityVersion(aggr.VersionCounts)

	return aggr
}

// Utilization is used/committed clamped to [0,1], and 0 when nothing is committed.
func Utilization(used, committed int64) float64 {
	if committed <= 0 || used <= 0 {
		return 0
	}
	ratio := float64(used) / float64(committed)
	if ratio > 1 {
		return 1
	}
	return ratio
}
