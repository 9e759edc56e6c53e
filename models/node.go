package models

import "time"

// NodeStatus is the staleness classification of a node.
type NodeStatus string

const (
	StatusOnline   NodeStatus = "online"
	StatusDegraded NodeStatus = "degraded"
	StatusOffline  NodeStatus = "offline"
)

// Valid reports whether s is one of the three known states.
func (s NodeStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusDegraded, StatusOffline:
		return true
	}
	return false
}

// Node is a Pod annotated with everything the API serves. Nodes are built
// once per refresh and treated as immutable values afterwards.
type Node struct {
	Pod

	// Identity: ID is always the pubkey
	ID string `json:"id"`

	// Parsed from Pod.Address
	IP   string `json:"ip"`
	Port int    `json:"port"`

	Status      NodeStatus `json:"status"`
	HealthScore int        `json:"health_score"` // 0-100
	LastSeen    time.Time  `json:"last_seen"`

	// Display strings
	StorageCommittedDisplay string `json:"storage_committed_display"`
	StorageUsedDisplay      string `json:"storage_used_display"`
	StorageUsageDisplay     string `json:"storage_usage_display"`
	UptimeDisplay           string `json:"uptime_display"`

	VersionStatus   string `json:"version_status"`
	IsUpgradeNeeded bool   `json:"is_upgrade_needed"`
	UpgradeSeverity string `json:"upgrade_severity"`
	UpgradeMessage  string `json:"upgrade_message,omitempty"`

	// Geo Estimation (of IP)
	Country string  `json:"country,omitempty"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}
