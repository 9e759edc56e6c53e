package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"xandpulse/config"
	"xandpulse/models"
	"xandpulse/utils"
)

// ErrNodeNotFound is returned when no node matches a lookup key.
var ErrNodeNotFound = errors.New("node not found")

// NodeService keeps the annotated node set current: it fetches pods,
// derives nodes and stats, and publishes the result to the cache and metrics.
type NodeService struct {
	cfg     *config.Config
	fetcher PodFetcher
	cache   *CacheService
	geo     *utils.GeoResolver
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	normMu     sync.RWMutex
	normalizer *Normalizer

	refreshMu sync.Mutex
	lookups   *rate.Limiter

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type NodeServiceOption func(*NodeService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) NodeServiceOption {
	return func(s *NodeService) { s.now = now }
}

// WithGeoResolver enables geo enrichment of node IPs.
func WithGeoResolver(geo *utils.GeoResolver) NodeServiceOption {
	return func(s *NodeService) { s.geo = geo }
}

// WithMetrics publishes every refresh to m.
func WithMetrics(m *Metrics) NodeServiceOption {
	return func(s *NodeService) { s.metrics = m }
}

func NewNodeService(cfg *config.Config, fetcher PodFetcher, cache *CacheService, logger *zap.Logger, opts ...NodeServiceOption) *NodeService {
	s := &NodeService{
		cfg:        cfg,
		fetcher:    fetcher,
		cache:      cache,
		logger:     logger.Named("nodes"),
		now:        time.Now,
		normalizer: NewNormalizer(cfg.Scoring, cfg.Versions),
		lookups:    rate.NewLimiter(rate.Every(refreshInterval(cfg)), 1),
		stopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start performs an initial refresh and then refreshes every stats interval
// until Stop.
func (s *NodeService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runRefreshLoop()
	}()
}

func (s *NodeService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *NodeService) runRefreshLoop() {
	s.refreshOnce()

	ticker := time.NewTicker(refreshInterval(s.cfg))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshOnce()
		case <-s.stopChan:
			return
		}
	}
}

func refreshInterval(cfg *config.Config) time.Duration {
	if interval := cfg.StatsIntervalDuration(); interval > 0 {
		return interval
	}
	return 30 * time.Second
}

func (s *NodeService) refreshOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.PRPCTimeoutDuration()+10*time.Second)
	defer cancel()

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error("refresh failed", zap.Error(err))
	}
}

// UpdateScoring swaps the scoring and version configuration and rescores the
// cached snapshot, so reads agree with the new tuning before the next refresh.
func (s *NodeService) UpdateScoring(scoring utils.ScoringConfig, versions utils.VersionConfig) {
	n := NewNormalizer(scoring, versions)

	s.normMu.Lock()
	s.normalizer = n
	s.normMu.Unlock()

	cfg := n.Scorer().Config()
	s.logger.Info("scoring configuration updated",
		zap.Int64("online_seconds", cfg.Thresholds.OnlineSeconds),
		zap.Int64("degraded_seconds", cfg.Thresholds.DegradedSeconds),
		zap.Float64("weight_uptime", cfg.Weights.Uptime),
		zap.Float64("weight_recency", cfg.Weights.Recency),
		zap.Float64("weight_storage", cfg.Weights.Storage),
		zap.Float64("weight_version", cfg.Weights.Version),
	)

	s.rescore()
}

// rescore rebuilds the fresh cached snapshot from its own pods at its own
// timestamp. A stale snapshot is left for the next refresh so it does not
// come back looking fresh.
func (s *NodeService) rescore() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	snap, _, found := s.cache.GetSnapshot(false)
	if !found {
		return
	}

	pods := make([]models.Pod, len(snap.Nodes))
	for i := range snap.Nodes {
		pods[i] = snap.Nodes[i].Pod
	}

	next := s.buildSnapshot(pods, snap.GeneratedAt)
	s.cache.SetSnapshot(next)
	s.metrics.Observe(next.Stats)
}

func (s *NodeService) currentNormalizer() *Normalizer {
	s.normMu.RLock()
	defer s.normMu.RUnlock()
	return s.normalizer
}

// Refresh fetches every pod and rebuilds the snapshot.
func (s *NodeService) Refresh(ctx context.Context) (*models.Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()

	pods, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		s.metrics.RefreshFailed()
		return nil, fmt.Errorf("fetch pods: %w", err)
	}

	snap := s.buildSnapshot(pods, s.now())

	s.cache.SetSnapshot(snap)
	s.metrics.Observe(snap.Stats)

	s.logger.Info("snapshot refreshed",
		zap.Duration("took", time.Since(start)),
		zap.Int("total", snap.Stats.TotalNodes),
		zap.Int("online", snap.Stats.OnlineNodes),
		zap.Int("degraded", snap.Stats.DegradedNodes),
		zap.Int("offline", snap.Stats.OfflineNodes),
		zap.Float64("avg_health", snap.Stats.AverageHealthScore),
		zap.Float64("utilization", snap.Stats.Utilization),
		zap.String("majority_version", snap.Fleet.MajorityVersion),
		zap.String("cache_mode", string(s.cache.GetCacheMode())),
	)
	return snap, nil
}

func (s *NodeService) buildSnapshot(pods []models.Pod, now time.Time) *models.Snapshot {
	nodes, fleet := s.currentNormalizer().NormalizeAll(pods, now)

	if s.geo.Enabled() {
		for i := range nodes {
			if loc, ok := s.geo.Lookup(nodes[i].IP); ok {
				nodes[i].Country = loc.Country
				nodes[i].City = loc.City
				nodes[i].Lat = loc.Lat
				nodes[i].Lon = loc.Lon
			}
		}
	}

	stats := Aggregate(nodes)
	stats.LastUpdated = now

	return &models.Snapshot{
		Nodes:       nodes,
		Stats:       stats,
		Fleet:       fleet,
		GeneratedAt: now,
	}
}

// Snapshot returns the cached snapshot, refreshing when nothing is cached.
// The bool reports whether the data is stale.
func (s *NodeService) Snapshot(ctx context.Context) (*models.Snapshot, bool, error) {
	if snap, _, found := s.cache.GetSnapshot(false); found {
		return snap, false, nil
	}
	if snap, stale, found := s.cache.GetSnapshot(true); found {
		return snap, stale, nil
	}

	snap, err := s.Refresh(ctx)
	if err != nil {
		return nil, false, err
	}
	return snap, false, nil
}

// GetNodes returns the filtered, sorted node list.
func (s *NodeService) GetNodes(ctx context.Context, criteria models.FilterCriteria) ([]models.Node, bool, error) {
	snap, stale, err := s.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	return FilterNodes(snap.Nodes, criteria), stale, nil
}

// GetStats returns the network stats of the current snapshot.
func (s *NodeService) GetStats(ctx context.Context) (models.NetworkStats, bool, error) {
	snap, stale, err := s.Snapshot(ctx)
	if err != nil {
		return models.NetworkStats{}, false, err
	}
	return snap.Stats, stale, nil
}

// GetNode finds a node by pubkey, falling back to its address. A node absent
// from the snapshot is fetched from the seeds at most once per refresh
// interval; otherwise it is reported as not found.
func (s *NodeService) GetNode(ctx context.Context, id string) (models.Node, bool, error) {
	snap, stale, err := s.Snapshot(ctx)
	if err != nil {
		// No snapshot at all: the last per-node entry is better than nothing
		if node, nodeStale, found := s.cache.GetNode(id, true); found {
			return *node, nodeStale, nil
		}
		return models.Node{}, false, err
	}
	if node, ok := findNode(snap.Nodes, id); ok {
		return node, stale, nil
	}

	// The node may have joined since the last refresh
	if id == "" || !s.lookups.Allow() {
		return models.Node{}, stale, ErrNodeNotFound
	}
	pod, found, err := s.fetcher.FetchOne(ctx, id)
	if err != nil {
		return models.Node{}, stale, fmt.Errorf("fetch pod %s: %w", id, err)
	}
	if !found {
		return models.Node{}, stale, ErrNodeNotFound
	}
	return s.currentNormalizer().Normalize(pod, s.now(), snap.Fleet), false, nil
}

// GetHealth returns the factor breakdown of one node, scored against the
// snapshot it was derived in.
func (s *NodeService) GetHealth(ctx context.Context, id string) (models.NodeHealth, bool, error) {
	snap, stale, err := s.Snapshot(ctx)
	if err != nil {
		return models.NodeHealth{}, false, err
	}
	node, ok := findNode(snap.Nodes, id)
	if !ok {
		return models.NodeHealth{}, stale, ErrNodeNotFound
	}
	return s.currentNormalizer().Health(node, snap.GeneratedAt, snap.Fleet), stale, nil
}

func findNode(nodes []models.Node, id string) (models.Node, bool) {
	if id == "" {
		return models.Node{}, false
	}
	for _, n := range nodes {
		if n.ID == id || n.Pubkey == id || n.Address == id {
			return n, true
		}
	}
	return models.Node{}, false
}
