package utils

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// Version status values.
const (
	VersionCurrent    = "current"
	VersionOutdated   = "outdated"
	VersionDeprecated = "deprecated"
	VersionUnknown    = "unknown"
)

// VersionConfig holds current version requirements. Empty fields are
// skipped; an empty CurrentStable is filled in from the fleet majority.
type VersionConfig struct {
	CurrentStable string `json:"current_stable"`
	MinSupported  string `json:"min_supported"`
	Deprecated    string `json:"deprecated"`
}

// WithFallbackStable returns a copy whose CurrentStable is majority when none
// is configured.
func (c VersionConfig) WithFallbackStable(majority string) VersionConfig {
	if c.CurrentStable == "" {
		c.CurrentStable = majority
	}
	return c
}

// ParseVersion parses a node version, tolerating a leading "v".
func ParseVersion(v string) (*version.Version, error) {
	return version.NewVersion(strings.TrimPrefix(strings.TrimSpace(v), "v"))
}

// CheckVersionStatus determines if a node version needs upgrading
func CheckVersionStatus(nodeVersion string, config VersionConfig) (status string, needsUpgrade bool, severity string) {
	nodeVer, err := ParseVersion(nodeVersion)
	if err != nil {
		return VersionUnknown, false, "info"
	}

	// Check if deprecated (critical)
	if deprecated, err := ParseVersion(config.Deprecated); err == nil && nodeVer.LessThan(deprecated) {
		return VersionDeprecated, true, "critical"
	}

	// Check if below minimum supported (warning)
	if minSupported, err := ParseVersion(config.MinSupported); err == nil && nodeVer.LessThan(minSupported) {
		return VersionOutdated, true, "warning"
	}

	// Check if not on latest stable (info)
	current, err := ParseVersion(config.CurrentStable)
	if err != nil {
		return VersionUnknown, false, "info"
	}
	if nodeVer.LessThan(current) {
		return VersionOutdated, true, "info"
	}

	// On latest or newer
	return VersionCurrent, false, "none"
}

// GetUpgradeMessage returns a human-readable upgrade message
func GetUpgradeMessage(nodeVersion string, config VersionConfig) string {
	_, needsUpgrade, severity := CheckVersionStatus(nodeVersion, config)
	if !needsUpgrade {
		return ""
	}

	switch severity {
	case "critical":
		return "CRITICAL: This version is deprecated and no longer supported. Upgrade to " + config.CurrentStable + " immediately."
	case "warning":
		return "WARNING: This version is outdated. Please upgrade to " + config.CurrentStable + " soon."
	case "info":
		return "INFO: A newer version " + config.CurrentStable + " is available."
	}

	return ""
}
