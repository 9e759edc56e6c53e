package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"xandpulse/models"
	"xandpulse/services"
)

func rpcError(c echo.Context, status int, id int, code int, msg string) error {
	return c.JSON(status, models.RPCResponse{
		JSONRPC: "2.0",
		Error:   &models.RPCError{Code: code, Message: msg},
		ID:      id,
	})
}

// ProxyRPC godoc
// @Summary Forward a JSON-RPC 2.0 request to a live pNode
// @Tags rpc
// @Accept json
// @Produce json
// @Success 200 {object} models.RPCResponse
// @Failure 400 {object} models.RPCResponse
// @Failure 503 {object} models.RPCResponse
// @Router /api/rpc [post]
func (h *Handler) ProxyRPC(c echo.Context) error {
	var req models.RPCRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return rpcError(c, http.StatusBadRequest, 0, -32700, "Parse error")
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		return rpcError(c, http.StatusBadRequest, req.ID, -32600, "Invalid Request")
	}

	resp, target, err := h.Proxy.Forward(c.Request().Context(), req)
	switch {
	case errors.Is(err, services.ErrNoProxyTarget):
		return rpcError(c, http.StatusServiceUnavailable, req.ID, -32000, "No reachable nodes")
	case err != nil:
		h.Logger.Warn("rpc proxy failed", zap.String("method", req.Method), zap.Error(err))
		return rpcError(c, http.StatusBadGateway, req.ID, -32603, "Internal proxied error")
	}

	resp.ID = req.ID
	c.Response().Header().Set("X-Proxy-Target", target)
	return c.JSON(http.StatusOK, resp)
}
