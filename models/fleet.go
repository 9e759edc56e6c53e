package models

import "time"

// FleetContext carries the network-wide facts needed to score one node
// relative to the rest.
type FleetContext struct {
	MajorityVersion string         `json:"majority_version"`
	VersionCounts   map[string]int `json:"version_counts"`
}

// Snapshot is the result of one full refresh: every annotated node plus the
// stats and fleet context they were derived with.
type Snapshot struct {
	Nodes       []Node       `json:"nodes"`
	Stats       NetworkStats `json:"stats"`
	Fleet       FleetContext `json:"fleet"`
	GeneratedAt time.Time    `json:"generated_at"`
}
