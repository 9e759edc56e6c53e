package services

import (
	"net"
	"strconv"
	"time"

	"xandpulse/models"
	"xandpulse/utils"
)

// Normalizer turns raw pods into annotated nodes. Output depends only on the
// arguments, so a Normalizer can be shared freely between goroutines.
type Normalizer struct {
	scorer   *utils.Scorer
	versions utils.VersionConfig
}

func NewNormalizer(scoring utils.ScoringConfig, versions utils.VersionConfig) *Normalizer {
	return &Normalizer{
		scorer:   utils.NewScorer(scoring),
		versions: versions,
	}
}

func (n *Normalizer) Scorer() *utils.Scorer {
	return n.scorer
}

// ParseAddress splits "host:port". Anything that does not fit comes back as
// the whole address with port 0.
func ParseAddress(address string) (string, int) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return address, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return address, 0
	}
	return host, port
}

// Normalize annotates a single pod.
func (n *Normalizer) Normalize(pod models.Pod, now time.Time, fleet models.FleetContext) models.Node {
	ip, port := ParseAddress(pod.Address)
	status := n.scorer.Classify(pod.LastSeenTimestamp, now)

	node := models.Node{
		Pod:         pod,
		ID:          pod.Pubkey,
		IP:          ip,
		Port:        port,
		Status:      status,
		HealthScore: n.scorer.Score(pod, status, now, fleet),
		LastSeen:    time.Unix(pod.LastSeenTimestamp, 0).UTC(),

		StorageCommittedDisplay: utils.FormatBytes(pod.StorageCommitted),
		StorageUsedDisplay:      utils.FormatBytes(pod.StorageUsed),
		StorageUsageDisplay:     utils.FormatPercent(utils.StorageUsagePercent(pod)),
		UptimeDisplay:           utils.FormatUptime(pod.Uptime),
	}

	versions := n.versions.WithFallbackStable(fleet.MajorityVersion)
	node.VersionStatus, node.IsUpgradeNeeded, node.UpgradeSeverity = utils.CheckVersionStatus(pod.Version, versions)
	node.UpgradeMessage = utils.GetUpgradeMessage(pod.Version, versions)

	return node
}

// NormalizeAll builds the fleet context from pods, then annotates each one in
// input order.
func (n *Normalizer) NormalizeAll(pods []models.Pod, now time.Time) ([]models.Node, models.FleetContext) {
	fleet := utils.BuildFleetContext(pods)

	nodes := make([]models.Node, 0, len(pods))
	for _, p := range pods {
		nodes = append(nodes, n.Normalize(p, now, fleet))
	}
	return nodes, fleet
}

// NormalizeByKey annotates the pod with the given pubkey, scored against the
// whole set. The bool is false when no pod matches.
func (n *Normalizer) NormalizeByKey(pods []models.Pod, key string, now time.Time) (models.Node, bool) {
	if key == "" {
		return models.Node{}, false
	}
	for _, p := range pods {
		if p.Pubkey == key {
			return n.Normalize(p, now, utils.BuildFleetContext(pods)), true
		}
	}
	return models.Node{}, false
}

// Health recomputes the status and factor breakdown of a node under the
// current thresholds and weights.
func (n *Normalizer) Health(node models.Node, now time.Time, fleet models.FleetContext) models.NodeHealth {
	status := n.scorer.Classify(node.LastSeenTimestamp, now)
	factors := n.scorer.Factors(node.Pod, status, now, fleet)
	return models.NodeHealth{
		ID:              node.ID,
		Status:          status,
		HealthScore:     n.scorer.Combine(factors),
		Factors:         factors,
		MajorityVersion: fleet.MajorityVersion,
	}
}
