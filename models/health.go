package models

// HealthFactors are the four sub-scores behind a node's HealthScore, each 0-100.
type HealthFactors struct {
	Uptime  float64 `json:"uptime"`
	Recency float64 `json:"recency"`
	Storage float64 `json:"storage"`
	Version float64 `json:"version"`
}

// NodeHealth is the detail-view breakdown for a single node.
type NodeHealth struct {
	ID              string        `json:"id"`
	Status          NodeStatus    `json:"status"`
	HealthScore     int           `json:"health_score"`
	Factors         HealthFactors `json:"factors"`
	MajorityVersion string        `json:"majority_version"`
}
