package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"xandpulse/models"
	"xandpulse/services"
)

// GetNodes godoc
// @Summary Get all nodes with filtering, sorting and pagination
// @Tags nodes
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 50, max: 500)"
// @Param status query string false "Filter by status (online, degraded, offline)"
// @Param version query string false "Filter by exact version"
// @Param search query string false "Case-insensitive match on pubkey, IP or address"
// @Param sort query string false "Sort field (id, address, ip, version, status, health, uptime, storage_committed, storage_used, storage_usage, last_seen)"
// @Param order query string false "Sort order (asc, desc) (default: desc)"
// @Success 200 {object} NodesResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/nodes [get]
func (h *Handler) GetNodes(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	criteria, err := parseCriteria(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	nodes, stale, err := h.Nodes.GetNodes(c.Request().Context(), criteria)
	if err != nil {
		return h.serviceError(c, err)
	}

	// Calculate pagination
	totalNodes := len(nodes)
	totalPages := (totalNodes + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	startIdx := (page - 1) * limit
	if startIdx >= totalNodes {
		startIdx = totalNodes
	}
	endIdx := min(startIdx+limit, totalNodes)

	response := NodesResponse{
		Nodes: nodes[startIdx:endIdx],
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			TotalItems: totalNodes,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}

	setStale(c, stale)
	return c.JSON(http.StatusOK, response)
}

func parseCriteria(c echo.Context) (models.FilterCriteria, error) {
	criteria := models.FilterCriteria{
		Version: c.QueryParam("version"),
		Search:  c.QueryParam("search"),
	}

	if s := c.QueryParam("status"); s != "" {
		status := models.NodeStatus(s)
		if !status.Valid() {
			return criteria, fmt.Errorf("invalid status %q", s)
		}
		criteria.Status = status
	}

	sortBy, ok := services.ParseSortKey(c.QueryParam("sort"))
	if !ok {
		return criteria, fmt.Errorf("invalid sort field %q", c.QueryParam("sort"))
	}
	criteria.SortBy = sortBy

	order, ok := services.ParseSortOrder(c.QueryParam("order"))
	if !ok {
		return criteria, fmt.Errorf("invalid sort order %q", c.QueryParam("order"))
	}
	criteria.Order = order

	return criteria, nil
}

// GetNode godoc
// @Summary Get a single node by ID
// @Tags nodes
// @Produce json
// @Param id path string true "Node ID (pubkey or address)"
// @Success 200 {object} models.Node
// @Failure 404 {object} ErrorResponse
// @Router /api/nodes/{id} [get]
func (h *Handler) GetNode(c echo.Context) error {
	node, stale, err := h.Nodes.GetNode(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	setStale(c, stale)
	return c.JSON(http.StatusOK, node)
}

// GetNodeHealth godoc
// @Summary Get the health score breakdown of a node
// @Tags nodes
// @Produce json
// @Param id path string true "Node ID (pubkey or address)"
// @Success 200 {object} models.NodeHealth
// @Failure 404 {object} ErrorResponse
// @Router /api/nodes/{id}/health [get]
func (h *Handler) GetNodeHealth(c echo.Context) error {
	health, stale, err := h.Nodes.GetHealth(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.serviceError(c, err)
	}

	setStale(c, stale)
	return c.JSON(http.StatusOK, health)
}

// NodesResponse represents the paginated nodes response
type NodesResponse struct {
	Nodes      []models.Node  `json:"nodes"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}
