package handlers

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// GetStats godoc
// @Summary Get network statistics
// @Description Returns node counts by status, storage totals, averages and the version histogram
// @Tags stats
// @Produce json
// @Success 200 {object} models.NetworkStats
// @Failure 503 {object} ErrorResponse
// @Router /api/stats [get]
func (h *Handler) GetStats(c echo.Context) error {
	stats, stale, err := h.Nodes.GetStats(c.Request().Context())
	if err != nil {
		return h.serviceError(c, err)
	}

	setStale(c, stale)
	return c.JSON(http.StatusOK, stats)
}

// VersionCount is one row of the version histogram.
type VersionCount struct {
	Version  string `json:"version"`
	Count    int    `json:"count"`
	Majority bool   `json:"majority"`
}

// GetVersions returns the version histogram, most common first.
func (h *Handler) GetVersions(c echo.Context) error {
	stats, stale, err := h.Nodes.GetStats(c.Request().Context())
	if err != nil {
		return h.serviceError(c, err)
	}

	versions := make([]VersionCount, 0, len(stats.VersionCounts))
	for v, n := range stats.VersionCounts {
		versions = append(versions, VersionCount{
			Version:  v,
			Count:    n,
			Majority: v == stats.MajorityVersion,
		})
	}
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].Count != versions[j].Count {
			return versions[i].Count > versions[j].Count
		}
		return versions[i].Version < versions[j].Version
	})

	setStale(c, stale)
	return c.JSON(http.StatusOK, map[string]any{
		"majority_version": stats.MajorityVersion,
		"versions":         versions,
	})
}
