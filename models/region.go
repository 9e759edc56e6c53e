package models

// RegionalCluster groups nodes by region
type RegionalCluster struct {
	Region        string   `json:"region"`
	NodeCount     int      `json:"node_count"`
	OnlineCount   int      `json:"online_count"`
	AverageHealth float64  `json:"average_health"`
	NodeIDs       []string `json:"node_ids"`
}
