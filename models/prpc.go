package models

import "encoding/json"

// JSON-RPC 2.0 Request
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int    `json:"id"`
}

// JSON-RPC 2.0 Response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSON-RPC 2.0 Error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ============================================
// get-pods-with-stats response
// ============================================
type PodsResponse struct {
	Pods       []Pod `json:"pods"`
	TotalCount int   `json:"total_count"`
}

// Pod is one raw pNode record as reported over gossip. It is never modified
// after decoding; everything derived from it lives on Node.
type Pod struct {
	Address             string  `json:"address"` // "IP:Port"
	IsPublic            bool    `json:"is_public"`
	LastSeenTimestamp   int64   `json:"last_seen_timestamp"` // epoch seconds
	Pubkey              string  `json:"pubkey"`
	RpcPort             int     `json:"rpc_port"`
	StorageCommitted    int64   `json:"storage_committed"`
	StorageUsagePercent float64 `json:"storage_usage_percent"` // 0-100
	StorageUsed         int64   `json:"storage_used"`
	Uptime              int64   `json:"uptime"` // seconds
	Version             string  `json:"version"`
}
