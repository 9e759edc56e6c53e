package utils

import (
	"math"
	"time"

	"xandpulse/models"
)

// Default staleness thresholds, in seconds since last seen.
const (
	DefaultOnlineThreshold   int64 = 300
	DefaultDegradedThreshold int64 = 900
)

// StatusThresholds are the upper bounds (inclusive) of the online and
// degraded bands.
type StatusThresholds struct {
	OnlineSeconds   int64 `json:"online_seconds"`
	DegradedSeconds int64 `json:"degraded_seconds"`
}

func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{
		OnlineSeconds:   DefaultOnlineThreshold,
		DegradedSeconds: DefaultDegradedThreshold,
	}
}

// Normalize replaces unusable thresholds with the defaults.
func (t StatusThresholds) Normalize() StatusThresholds {
	if t.OnlineSeconds <= 0 {
		t.OnlineSeconds = DefaultOnlineThreshold
	}
	if t.DegradedSeconds < t.OnlineSeconds {
		t.DegradedSeconds = max(DefaultDegradedThreshold, t.OnlineSeconds)
	}
	return t
}

// ElapsedSince returns whole seconds between lastSeen and now, never negative.
func ElapsedSince(lastSeen int64, now time.Time) int64 {
	nowSec := now.Unix()
	if lastSeen >= nowSec {
		return 0
	}
	elapsed := nowSec - lastSeen
	if elapsed < 0 { // overflow on absurdly old timestamps
		return math.MaxInt64
	}
	return elapsed
}

// ClassifyStatus maps a last-seen timestamp to a status. A node seen exactly
// at a threshold stays in the healthier band; timestamps in the future count
// as just seen.
func ClassifyStatus(lastSeen int64, now time.Time, th StatusThresholds) models.NodeStatus {
	elapsed := ElapsedSince(lastSeen, now)

	switch {
	case elapsed <= th.OnlineSeconds:
		return models.StatusOnline
	case elapsed <= th.DegradedSeconds:
		return models.StatusDegraded
	default:
		return models.StatusOffline
	}
}
