package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"xandpulse/models"
)

// ErrNoProxyTarget is returned when the snapshot has no reachable node.
var ErrNoProxyTarget = errors.New("no reachable nodes")

// rpcCaller is the slice of PRPCClient the proxy needs.
type rpcCaller interface {
	CallPRPC(ctx context.Context, nodeAddr string, method string, params any) (*models.RPCResponse, error)
}

// RPCProxy forwards JSON-RPC calls to nodes of the current snapshot.
type RPCProxy struct {
	nodes       *NodeService
	client      rpcCaller
	defaultPort int
	next        atomic.Uint64
	logger      *zap.Logger
}

// NewRPCProxy builds a proxy over the node service. defaultPort is the pRPC
// port assumed for nodes that do not report one.
func NewRPCProxy(nodes *NodeService, client rpcCaller, defaultPort int, logger *zap.Logger) *RPCProxy {
	return &RPCProxy{
		nodes:       nodes,
		client:      client,
		defaultPort: defaultPort,
		logger:      logger.Named("rpc-proxy"),
	}
}

// Forward sends req to an online node, or a degraded one when none is online.
// Targets rotate between calls and a failed call is retried once on the next
// target. An RPC-level error from the node is returned as its answer.
func (p *RPCProxy) Forward(ctx context.Context, req models.RPCRequest) (*models.RPCResponse, string, error) {
	snap, _, err := p.nodes.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}

	targets := proxyTargets(snap.Nodes, p.defaultPort)
	if len(targets) == 0 {
		return nil, "", ErrNoProxyTarget
	}

	start := int(p.next.Add(1) % uint64(len(targets)))
	attempts := min(2, len(targets))

	var lastErr error
	for i := 0; i < attempts; i++ {
		target := targets[(start+i)%len(targets)]

		resp, err := p.client.CallPRPC(ctx, target, req.Method, req.Params)
		if err == nil || (resp != nil && resp.Error != nil) {
			return resp, target, nil
		}

		lastErr = err
		p.logger.Warn("proxied call failed",
			zap.String("target", target),
			zap.String("method", req.Method),
			zap.Error(err),
		)
	}
	return nil, "", fmt.Errorf("forward %s: %w", req.Method, lastErr)
}

func proxyTargets(nodes []models.Node, defaultPort int) []string {
	pick := func(status models.NodeStatus) []string {
		var out []string
		for _, n := range nodes {
			if n.Status != status {
				continue
			}
			if addr := rpcAddress(n, defaultPort); addr != "" {
				out = append(out, addr)
			}
		}
		return out
	}

	if targets := pick(models.StatusOnline); len(targets) > 0 {
		return targets
	}
	return pick(models.StatusDegraded)
}

// rpcAddress is IP:rpc_port when the node reports one and IP:defaultPort
// otherwise. The gossip address is the last resort for a node without an IP.
func rpcAddress(n models.Node, defaultPort int) string {
	if n.IP == "" {
		return n.Address
	}
	port := n.RpcPort
	if port <= 0 {
		port = defaultPort
	}
	if port <= 0 {
		return n.Address
	}
	return net.JoinHostPort(n.IP, strconv.Itoa(port))
}
