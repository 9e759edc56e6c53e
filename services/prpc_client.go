package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"xandpulse/config"
	"xandpulse/models"
)

type PRPCClient struct {
	config     *config.Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPRPCClient(cfg *config.Config, logger *zap.Logger) *PRPCClient {
	timeout := 10 * time.Second

	// Use configured timeout if reasonable
	configTimeout := cfg.PRPCTimeoutDuration()
	if configTimeout > 0 && configTimeout <= 15*time.Second {
		timeout = configTimeout
	}

	return &PRPCClient{
		config: cfg,
		logger: logger.Named("prpc"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

// CallPRPC sends one JSON-RPC request to nodeAddr ("host:port"), retrying
// transport failures, 5xx and 429 with exponential backoff.
func (c *PRPCClient) CallPRPC(ctx context.Context, nodeAddr string, method string, params any) (*models.RPCResponse, error) {
	reqBody := models.RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s/rpc", nodeAddr)

	var resp *http.Response
	delay := 200 * time.Millisecond
	maxRetries := c.config.PRPC.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", reqErr)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(httpReq)
		if err == nil {
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				err = fmt.Errorf("server error: %d", resp.StatusCode)
			} else {
				break
			}
		}

		if i < maxRetries-1 {
			c.logger.Debug("retrying pRPC call",
				zap.String("node", nodeAddr),
				zap.String("method", method),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, nodeAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error %d from %s %s", resp.StatusCode, method, nodeAddr)
	}

	var rpcResp models.RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &rpcResp, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return &rpcResp, nil
}

// GetPods fetches the gossip view of one node.
func (c *PRPCClient) GetPods(ctx context.Context, nodeAddr string) (*models.PodsResponse, error) {
	resp, err := c.CallPRPC(ctx, nodeAddr, "get-pods-with-stats", nil)
	if err != nil {
		return nil, err
	}

	var podsResp models.PodsResponse
	if err := json.Unmarshal(resp.Result, &podsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pods from %s: %w", nodeAddr, err)
	}

	return &podsResp, nil
}
