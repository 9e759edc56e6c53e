package models

import "time"

// NetworkStats represents aggregated network statistics
type NetworkStats struct {
	TotalNodes    int `json:"total_nodes"`
	OnlineNodes   int `json:"online_nodes"`
	DegradedNodes int `json:"degraded_nodes"`
	OfflineNodes  int `json:"offline_nodes"`
	PublicNodes   int `json:"public_nodes"`
	PrivateNodes  int `json:"private_nodes"`

	TotalStorageCommitted int64   `json:"total_storage_committed"` // bytes
	TotalStorageUsed      int64   `json:"total_storage_used"`      // bytes
	Utilization           float64 `json:"utilization"`             // 0-1

	AverageUptime      float64 `json:"average_uptime"` // seconds
	AverageHealthScore float64 `json:"average_health_score"`

	VersionCounts   map[string]int `json:"version_counts"`
	MajorityVersion string         `json:"majority_version"`

	LastUpdated time.Time `json:"last_updated"`
}

// StatusCount returns the number of nodes in the given status bucket.
func (s NetworkStats) StatusCount(status NodeStatus) int {
	switch status {
	case StatusOnline:
		return s.OnlineNodes
	case StatusDegraded:
		return s.DegradedNodes
	case StatusOffline:
		return s.OfflineNodes
	}
	return 0
}
