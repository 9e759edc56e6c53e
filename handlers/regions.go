package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetRegions godoc
// @Summary Get nodes grouped by country
// @Tags stats
// @Produce json
// @Success 200 {array} models.RegionalCluster
// @Router /api/regions [get]
func (h *Handler) GetRegions(c echo.Context) error {
	clusters, stale, err := h.Nodes.GetRegions(c.Request().Context())
	if err != nil {
		return h.serviceError(c, err)
	}

	setStale(c, stale)
	return c.JSON(http.StatusOK, clusters)
}
