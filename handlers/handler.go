package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"xandpulse/config"
	"xandpulse/services"
)

type Handler struct {
	Cfg     *config.Config
	Nodes   *services.NodeService
	Cache   *services.CacheService
	Proxy   *services.RPCProxy
	Logger  *zap.Logger
	started time.Time
}

func NewHandler(cfg *config.Config, nodes *services.NodeService, cache *services.CacheService, proxy *services.RPCProxy, logger *zap.Logger) *Handler {
	return &Handler{
		Cfg:     cfg,
		Nodes:   nodes,
		Cache:   cache,
		Proxy:   proxy,
		Logger:  logger.Named("api"),
		started: time.Now(),
	}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.GetHealth)
	e.GET("/cache/status", h.GetCacheStatus)
	e.POST("/cache/clear", h.ClearCache)

	api := e.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/nodes", h.GetNodes)
	api.GET("/nodes/:id", h.GetNode)
	api.GET("/nodes/:id/health", h.GetNodeHealth)
	api.GET("/stats", h.GetStats)
	api.GET("/versions", h.GetVersions)
	api.GET("/regions", h.GetRegions)
	api.POST("/refresh", h.Refresh)
	api.POST("/rpc", h.ProxyRPC)
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// serviceError maps a service error to a JSON error response.
func (h *Handler) serviceError(c echo.Context, err error) error {
	if errors.Is(err, services.ErrNodeNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Node not found"})
	}
	h.Logger.Warn("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: "Network data temporarily unavailable",
	})
}

func setStale(c echo.Context, stale bool) {
	if stale {
		c.Response().Header().Set("X-Data-Stale", "true")
		c.Response().Header().Set("Cache-Control", "max-age=30")
	} else {
		c.Response().Header().Set("Cache-Control", "max-age=60")
	}
}
