package utils

import (
	"math"
	"time"

	"xandpulse/models"
)

// Scoring defaults.
const (
	DefaultUptimeCeiling        int64   = 30 * 24 * 60 * 60 // 30 days
	DefaultStorageBandLow       float64 = 40
	DefaultStorageBandHigh      float64 = 70
	DefaultVersionMismatchScore float64 = 50
)

// ScoreWeights are the contribution of each factor to the final score.
// They are rescaled to sum to 1.0 by ScoringConfig.Normalize.
type ScoreWeights struct {
	Uptime  float64 `json:"uptime"`
	Recency float64 `json:"recency"`
	Storage float64 `json:"storage"`
	Version float64 `json:"version"`
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Uptime:  0.35,
		Recency: 0.35,
		Storage: 0.20,
		Version: 0.10,
	}
}

func (w ScoreWeights) sum() float64 {
	return w.Uptime + w.Recency + w.Storage + w.Version
}

// ScoringConfig holds every tunable of the status classifier and health scorer.
type ScoringConfig struct {
	Thresholds           StatusThresholds `json:"thresholds"`
	UptimeCeilingSeconds int64            `json:"uptime_ceiling_seconds"`
	StorageBandLow       float64          `json:"storage_band_low"`  // percent
	StorageBandHigh      float64          `json:"storage_band_high"` // percent
	VersionMismatchScore float64          `json:"version_mismatch_score"`
	Weights              ScoreWeights     `json:"weights"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Thresholds:           DefaultStatusThresholds(),
		UptimeCeilingSeconds: DefaultUptimeCeiling,
		StorageBandLow:       DefaultStorageBandLow,
		StorageBandHigh:      DefaultStorageBandHigh,
		VersionMismatchScore: DefaultVersionMismatchScore,
		Weights:              DefaultScoreWeights(),
	}
}

// Normalize returns a copy with out-of-range values replaced by defaults and
// the weights rescaled to sum to 1.0.
func (c ScoringConfig) Normalize() ScoringConfig {
	c.Thresholds = c.Thresholds.Normalize()

	if c.UptimeCeilingSeconds <= 0 {
		c.UptimeCeilingSeconds = DefaultUptimeCeiling
	}

	if c.StorageBandLow < 0 || c.StorageBandHigh > 100 || c.StorageBandLow > c.StorageBandHigh ||
		math.IsNaN(c.StorageBandLow) || math.IsNaN(c.StorageBandHigh) {
		c.StorageBandLow = DefaultStorageBandLow
		c.StorageBandHigh = DefaultStorageBandHigh
	}

	if math.IsNaN(c.VersionMismatchScore) {
		c.VersionMismatchScore = DefaultVersionMismatchScore
	}
	c.VersionMismatchScore = clamp(c.VersionMismatchScore, 0, 100)

	w := c.Weights
	if w.Uptime < 0 || w.Recency < 0 || w.Storage < 0 || w.Version < 0 ||
		math.IsNaN(w.sum()) || math.IsInf(w.sum(), 0) || w.sum() <= 0 {
		w = DefaultScoreWeights()
	}
	total := w.sum()
	c.Weights = ScoreWeights{
		Uptime:  w.Uptime / total,
		Recency: w.Recency / total,
		Storage: w.Storage / total,
		Version: w.Version / total,
	}

	return c
}

// Scorer computes health scores under one fixed configuration. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	cfg ScoringConfig
}

func NewScorer(cfg ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg.Normalize()}
}

// Config returns the normalized configuration the scorer was built with.
func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Classify returns the node status under the scorer's thresholds.
func (s *Scorer) Classify(lastSeen int64, now time.Time) models.NodeStatus {
	return ClassifyStatus(lastSeen, now, s.cfg.Thresholds)
}

// Factors computes the four sub-scores for one pod. The version factor is
// relative to fleet.MajorityVersion.
func (s *Scorer) Factors(pod models.Pod, status models.NodeStatus, now time.Time, fleet models.FleetContext) models.HealthFactors {
	return models.HealthFactors{
		Uptime:  s.uptimeScore(pod.Uptime),
		Recency: s.recencyScore(pod.LastSeenTimestamp, status, now),
		Storage: s.storageScore(StorageUsagePercent(pod)),
		Version: s.versionScore(pod.Version, fleet.MajorityVersion),
	}
}

// Score computes the node's health score (0-100)
func (s *Scorer) Score(pod models.Pod, status models.NodeStatus, now time.Time, fleet models.FleetContext) int {
	return s.Combine(s.Factors(pod, status, now, fleet))
}

// Combine applies the configured weights to a set of factors.
func (s *Scorer) Combine(f models.HealthFactors) int {
	w := s.cfg.Weights
	total := f.Uptime*w.Uptime +
		f.Recency*w.Recency +
		f.Storage*w.Storage +
		f.Version*w.Version

	if math.IsNaN(total) {
		return 0
	}
	return int(clamp(math.Round(total), 0, 100))
}

// 1. Recency: linear decay from 100 when just seen to 0 at the offline threshold.
func (s *Scorer) recencyScore(lastSeen int64, status models.NodeStatus, now time.Time) float64 {
	if status == models.StatusOffline {
		return 0
	}
	limit := s.cfg.Thresholds.DegradedSeconds
	elapsed := ElapsedSince(lastSeen, now)
	if elapsed >= limit {
		return 0
	}
	return clamp(100*(1-float64(elapsed)/float64(limit)), 0, 100)
}

// 2. Uptime: linear up to the ceiling, flat after.
func (s *Scorer) uptimeScore(uptime int64) float64 {
	if uptime <= 0 {
		return 0
	}
	return clamp(100*float64(uptime)/float64(s.cfg.UptimeCeilingSeconds), 0, 100)
}

// 3. Storage: full marks inside the band, falling linearly to 0 at an empty
// node and at a full one.
func (s *Scorer) storageScore(usage float64) float64 {
	low, high := s.cfg.StorageBandLow, s.cfg.StorageBandHigh
	usage = clamp(usage, 0, 100)

	switch {
	case usage < low:
		return clamp(100*usage/low, 0, 100)
	case usage > high:
		return clamp(100*(100-usage)/(100-high), 0, 100)
	default:
		return 100
	}
}

// 4. Version: a node off the majority version takes a soft penalty.
func (s *Scorer) versionScore(v, majority string) float64 {
	if v != "" && v == majority {
		return 100
	}
	return s.cfg.VersionMismatchScore
}

// StorageUsagePercent prefers the byte counts and falls back to the reported
// percent when nothing is committed. NaN degrades to 0.
func StorageUsagePercent(pod models.Pod) float64 {
	var usage float64
	if pod.StorageCommitted > 0 {
		usage = 100 * float64(max(pod.StorageUsed, 0)) / float64(pod.StorageCommitted)
	} else {
		usage = pod.StorageUsagePercent
	}
	if math.IsNaN(usage) {
		return 0
	}
	return clamp(usage, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
