package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// GetHealth returns OK
func (h *Handler) GetHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// GetStatus returns backend status
func (h *Handler) GetStatus(c echo.Context) error {
	status := map[string]any{
		"status":     "running",
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"cache_mode": string(h.Cache.GetCacheMode()),
		"timestamp":  time.Now().UTC(),
	}

	if snap, stale, found := h.Cache.GetSnapshot(true); found {
		status["known_nodes"] = len(snap.Nodes)
		status["last_refresh"] = snap.GeneratedAt
		status["stale"] = stale
	}
	return c.JSON(http.StatusOK, status)
}

// Refresh forces an immediate snapshot rebuild.
func (h *Handler) Refresh(c echo.Context) error {
	snap, err := h.Nodes.Refresh(c.Request().Context())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, snap.Stats)
}

// GetCacheStatus returns cache health and statistics
func (h *Handler) GetCacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Cache.GetCacheStats(c.Request().Context()))
}

// ClearCache clears all cached data (admin endpoint)
func (h *Handler) ClearCache(c echo.Context) error {
	if err := h.Cache.ClearCache(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Cache cleared successfully",
	})
}
