package services

import (
	"slices"
	"strings"

	"xandpulse/models"
	"xandpulse/utils"
)

// ParseSortKey validates a sort field from a query string. "" means no sort.
func ParseSortKey(s string) (models.SortKey, bool) {
	key := models.SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case models.SortNone, models.SortID, models.SortAddress, models.SortIP,
		models.SortVersion, models.SortStatus, models.SortHealth, models.SortUptime,
		models.SortStorageCommitted, models.SortStorageUsed, models.SortStorageUsage,
		models.SortLastSeen:
		return key, true
	case "pubkey":
		return models.SortID, true
	case "health_score":
		return models.SortHealth, true
	}
	return models.SortNone, false
}

// ParseSortOrder validates a sort direction; "" defaults to descending.
func ParseSortOrder(s string) (models.SortOrder, bool) {
	switch models.SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", models.SortDesc:
		return models.SortDesc, true
	case models.SortAsc:
		return models.SortAsc, true
	}
	return models.SortDesc, false
}

// FilterNodes returns the nodes matching every set criterion, stably sorted by
// criteria.SortBy. The input slice is left untouched.
func FilterNodes(nodes []models.Node, criteria models.FilterCriteria) []models.Node {
	search := strings.ToLower(strings.TrimSpace(criteria.Search))

	out := make([]models.Node, 0, len(nodes))
	for _, n := range nodes {
		if criteria.Status != "" && n.Status != criteria.Status {
			continue
		}
		if criteria.Version != "" && n.Version != criteria.Version {
			continue
		}
		if search != "" && !matchesSearch(n, search) {
			continue
		}
		out = append(out, n)
	}

	if criteria.SortBy == models.SortNone {
		return out
	}

	desc := criteria.Order == models.SortDesc
	slices.SortStableFunc(out, func(a, b models.Node) int {
		c := utils.CompareValues(sortValue(a, criteria.SortBy), sortValue(b, criteria.SortBy))
		if desc {
			return -c
		}
		return c
	})
	return out
}

func matchesSearch(n models.Node, needle string) bool {
	return strings.Contains(strings.ToLower(n.Pubkey), needle) ||
		strings.Contains(strings.ToLower(n.IP), needle) ||
		strings.Contains(strings.ToLower(n.Address), needle)
}

func sortValue(n models.Node, key models.SortKey) any {
	switch key {
	case models.SortID:
		return n.ID
	case models.SortAddress:
		return n.Address
	case models.SortIP:
		return n.IP
	case models.SortVersion:
		return n.Version
	case models.SortStatus:
		return statusWeight(n.Status)
	case models.SortHealth:
		return n.HealthScore
	case models.SortUptime:
		return n.Uptime
	case models.SortStorageCommitted:
		return n.StorageCommitted
	case models.SortStorageUsed:
		return n.StorageUsed
	case models.SortStorageUsage:
		return utils.StorageUsagePercent(n.Pod)
	case models.SortLastSeen:
		return n.LastSeenTimestamp
	}
	return nil
}

// statusWeight orders statuses from worst to best.
func statusWeight(s models.NodeStatus) int {
	switch s {
	case models.StatusOnline:
		return 3
	case models.StatusDegraded:
		return 2
	case models.StatusOffline:
		return 1
	default:
		return 0
	}
}
