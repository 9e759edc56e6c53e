package services

import (
	"context"
	"sort"

	"xandpulse/models"
)

// RegionalClusters groups geo-located nodes by country, largest first.
func RegionalClusters(nodes []models.Node) []models.RegionalCluster {
	byCountry := make(map[string]*models.RegionalCluster)
	healthSums := make(map[string]float64)

	for _, node := range nodes {
		if node.Country == "" {
			continue
		}
		cluster, ok := byCountry[node.Country]
		if !ok {
			cluster = &models.RegionalCluster{Region: node.Country}
			byCountry[node.Country] = cluster
		}
		cluster.NodeCount++
		cluster.NodeIDs = append(cluster.NodeIDs, node.ID)
		if node.Status == models.StatusOnline {
			cluster.OnlineCount++
		}
		healthSums[node.Country] += float64(node.HealthScore)
	}

	clusters := make([]models.RegionalCluster, 0, len(byCountry))
	for country, cluster := range byCountry {
		cluster.AverageHealth = healthSums[country] / float64(cluster.NodeCount)
		clusters = append(clusters, *cluster)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].NodeCount != clusters[j].NodeCount {
			return clusters[i].NodeCount > clusters[j].NodeCount
		}
		return clusters[i].Region < clusters[j].Region
	})
	return clusters
}

// GetRegions returns the regional clusters of the current snapshot.
func (s *NodeService) GetRegions(ctx context.Context) ([]models.RegionalCluster, bool, error) {
	snap, stale, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	return RegionalClusters(snap.Nodes), stale, nil
}
