package utils

import (
	"xandpulse/models"
)

// BuildFleetContext counts versions across the raw pods and picks the
// majority. Pods without a version are not counted.
func BuildFleetContext(pods []models.Pod) models.FleetContext {
	counts := make(map[string]int)
	for _, p := range pods {
		if p.Version == "" {
			continue
		}
		counts[p.Version]++
	}

	return models.FleetContext{
		MajorityVersion: MajorityVersion(counts),
		VersionCounts:   counts,
	}
}

// MajorityVersion returns the most frequent version. Ties go to the higher
// semantic version, then to the lexically greater string, so the result does
// not depend on map order. The empty key, meaning no version reported, is
// ignored.
func MajorityVersion(counts map[string]int) string {
	best, bestCount := "", 0
	for v, n := range counts {
		if v == "" || n <= 0 {
			continue
		}
		if n > bestCount || (n == bestCount && versionGreater(v, best)) {
			best, bestCount = v, n
		}
	}
	return best
}

// versionGreater orders parseable versions above unparseable ones.
func versionGreater(a, b string) bool {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)

	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c > 0
		}
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a > b
}
