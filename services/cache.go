package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"xandpulse/config"
	"xandpulse/models"
)

// CacheMode indicates which cache backend is active
type CacheMode string

const (
	CacheModeRedis    CacheMode = "redis"
	CacheModeInMemory CacheMode = "in-memory"
)

const (
	snapshotKey   = "snapshot"
	nodeKeyPrefix = "node:"
)

// CacheItem for in-memory fallback
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// CacheService keeps the latest snapshot in Redis when available and in
// process memory otherwise. In-memory entries outlive their TTL so callers
// can fall back to stale data.
type CacheService struct {
	cfg    *config.Config
	logger *zap.Logger

	// Redis
	redis       *redis.Client
	redisCtx    context.Context
	redisCancel context.CancelFunc
	mode        CacheMode
	modeMutex   sync.RWMutex

	// In-memory fallback
	inMemoryStore sync.Map

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCacheService(cfg *config.Config, logger *zap.Logger) *CacheService {
	ctx, cancel := context.WithCancel(context.Background())

	cs := &CacheService{
		cfg:         cfg,
		logger:      logger.Named("cache"),
		redisCtx:    ctx,
		redisCancel: cancel,
		stopChan:    make(chan struct{}),
		mode:        CacheModeInMemory, // Start in memory mode
	}

	if cfg.Redis.Enabled {
		cs.connectRedis()
	} else {
		cs.logger.Info("Redis disabled in config, using in-memory cache only")
	}

	return cs
}

func (cs *CacheService) connectRedis() {
	if cs.cfg.Redis.Address == "" {
		cs.logger.Warn("Redis address not configured, using in-memory cache")
		return
	}

	options := &redis.Options{
		Addr:         cs.cfg.Redis.Address,
		Password:     cs.cfg.Redis.Password,
		DB:           cs.cfg.Redis.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		PoolTimeout:  10 * time.Second,
	}

	if cs.cfg.Redis.UseTLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cs.redis = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(cs.redisCtx, 10*time.Second)
	defer cancel()

	if err := cs.redis.Ping(ctx).Err(); err != nil {
		cs.logger.Warn("Redis connection failed, running in in-memory mode",
			zap.String("address", cs.cfg.Redis.Address), zap.Error(err))
		cs.setMode(CacheModeInMemory)
		return
	}

	cs.logger.Info("Redis connected", zap.String("address", cs.cfg.Redis.Address), zap.Bool("tls", cs.cfg.Redis.UseTLS))
	cs.setMode(CacheModeRedis)
}

func (cs *CacheService) setMode(mode CacheMode) {
	cs.modeMutex.Lock()
	defer cs.modeMutex.Unlock()
	cs.mode = mode
}

func (cs *CacheService) getMode() CacheMode {
	cs.modeMutex.RLock()
	defer cs.modeMutex.RUnlock()
	return cs.mode
}

// Start runs the Redis health check loop.
func (cs *CacheService) Start() {
	go cs.runHealthCheckLoop()
}

func (cs *CacheService) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.stopChan)
		cs.redisCancel()

		if cs.redis != nil {
			cs.redis.Close()
		}
	})
}

func (cs *CacheService) runHealthCheckLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cs.checkRedisHealth()
		case <-cs.stopChan:
			return
		}
	}
}

// checkRedisHealth flips between modes as Redis goes away and comes back.
func (cs *CacheService) checkRedisHealth() {
	if !cs.cfg.Redis.Enabled || cs.redis == nil {
		return
	}

	mode := cs.getMode()

	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	err := cs.redis.Ping(ctx).Err()
	if mode == CacheModeRedis && err != nil {
		cs.logger.Warn("Redis health check failed, switching to in-memory mode", zap.Error(err))
		cs.setMode(CacheModeInMemory)
	} else if mode == CacheModeInMemory && err == nil {
		cs.logger.Info("Redis reconnected, switching back to redis mode")
		cs.syncInMemoryToRedis()
		cs.setMode(CacheModeRedis)
	}
}

func (cs *CacheService) syncInMemoryToRedis() {
	synced := 0
	cs.inMemoryStore.Range(func(key, value any) bool {
		item := value.(*CacheItem)
		if ttl := time.Until(item.ExpiresAt); ttl > 0 {
			if err := cs.setRedis(key.(string), item.Data, ttl); err == nil {
				synced++
			}
		}
		return true
	})
	cs.logger.Info("synced in-memory cache to Redis", zap.Int("items", synced))
}

// SetSnapshot stores a snapshot and an entry per node, dropping the entries
// of nodes that are no longer in it.
func (cs *CacheService) SetSnapshot(snap *models.Snapshot) {
	ttl := cs.cfg.CacheTTLDuration()

	live := make(map[string]struct{}, len(snap.Nodes))
	cs.Set(snapshotKey, snap, ttl)
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		live[nodeKeyPrefix+n.ID] = struct{}{}
		cs.Set(nodeKeyPrefix+n.ID, &n, ttl)
	}
	cs.pruneNodes(live)
}

func (cs *CacheService) pruneNodes(live map[string]struct{}) {
	pruned := 0
	cs.inMemoryStore.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok || !strings.HasPrefix(k, nodeKeyPrefix) {
			return true
		}
		if _, keep := live[k]; !keep {
			cs.inMemoryStore.Delete(k)
			pruned++
		}
		return true
	})

	if cs.getMode() == CacheModeRedis && cs.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var stale []string
		iter := cs.redis.Scan(ctx, 0, nodeKeyPrefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			if _, keep := live[iter.Val()]; !keep {
				stale = append(stale, iter.Val())
			}
		}
		if err := iter.Err(); err != nil {
			cs.logger.Warn("Redis SCAN failed, stale node keys kept", zap.Error(err))
		} else if len(stale) > 0 {
			if err := cs.redis.Del(ctx, stale...).Err(); err != nil {
				cs.logger.Warn("Redis DEL failed, stale node keys kept", zap.Error(err))
			}
		}
	}

	if pruned > 0 {
		cs.logger.Debug("pruned departed nodes", zap.Int("count", pruned))
	}
}

func (cs *CacheService) Set(key string, data any, ttl time.Duration) {
	// The in-memory copy is always kept so Redis outages can serve stale data
	cs.setInMemory(key, data, ttl)

	if cs.getMode() == CacheModeRedis {
		if err := cs.setRedis(key, data, ttl); err != nil {
			cs.logger.Warn("Redis SET failed, in-memory copy only", zap.String("key", key), zap.Error(err))
		}
	}
}

// GetWithStale returns data, whether it is stale, and whether it was found.
func (cs *CacheService) GetWithStale(key string) (any, bool, bool) {
	if cs.getMode() == CacheModeRedis {
		data, found, err := cs.getRedis(key)
		if err == nil && found {
			// Redis manages TTL, so if found, it's fresh
			return data, false, true
		}
		if err != nil {
			cs.logger.Debug("Redis GET failed, using in-memory", zap.String("key", key), zap.Error(err))
		}
	}
	return cs.getInMemoryWithStale(key)
}

func (cs *CacheService) setRedis(key string, data any, ttl time.Duration) error {
	if cs.redis == nil {
		return errors.New("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return cs.redis.Set(ctx, key, jsonData, ttl).Err()
}

func (cs *CacheService) getRedis(key string) (any, bool, error) {
	if cs.redis == nil {
		return nil, false, errors.New("redis client not initialized")
	}

	ctx, cancel := context.WithTimeout(cs.redisCtx, 2*time.Second)
	defer cancel()

	jsonData, err := cs.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	// Deserialize based on key pattern
	switch {
	case key == snapshotKey:
		var snap models.Snapshot
		if err := json.Unmarshal(jsonData, &snap); err != nil {
			return nil, false, err
		}
		return &snap, true, nil
	case strings.HasPrefix(key, nodeKeyPrefix):
		var node models.Node
		if err := json.Unmarshal(jsonData, &node); err != nil {
			return nil, false, err
		}
		return &node, true, nil
	default:
		var data any
		if err := json.Unmarshal(jsonData, &data); err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
}

func (cs *CacheService) setInMemory(key string, data any, ttl time.Duration) {
	cs.inMemoryStore.Store(key, &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

func (cs *CacheService) getInMemoryWithStale(key string) (any, bool, bool) {
	val, ok := cs.inMemoryStore.Load(key)
	if !ok {
		return nil, false, false
	}
	item := val.(*CacheItem)
	return item.Data, time.Now().After(item.ExpiresAt), true
}

// GetSnapshot returns the cached snapshot, whether it is stale, and whether
// one was found. Stale data is only returned when allowStale is set.
func (cs *CacheService) GetSnapshot(allowStale bool) (*models.Snapshot, bool, bool) {
	data, stale, found := cs.GetWithStale(snapshotKey)
	if !found || (!allowStale && stale) {
		return nil, false, false
	}
	if snap, ok := data.(*models.Snapshot); ok {
		return snap, stale, true
	}
	return nil, false, false
}

func (cs *CacheService) GetNode(id string, allowStale bool) (*models.Node, bool, bool) {
	data, stale, found := cs.GetWithStale(nodeKeyPrefix + id)
	if !found || (!allowStale && stale) {
		return nil, false, false
	}
	if node, ok := data.(*models.Node); ok {
		return node, stale, true
	}
	return nil, false, false
}

func (cs *CacheService) GetCacheMode() CacheMode {
	return cs.getMode()
}

// ClearCache drops every cached key from both backends.
func (cs *CacheService) ClearCache(ctx context.Context) error {
	if cs.getMode() == CacheModeRedis && cs.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		// Use SCAN to find and delete our keys
		iter := cs.redis.Scan(ctx, 0, nodeKeyPrefix+"*", 0).Iterator()
		deleted := 0
		for iter.Next(ctx) {
			if err := cs.redis.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("delete %s: %w", iter.Val(), err)
			}
			deleted++
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan node keys: %w", err)
		}
		if err := cs.redis.Del(ctx, snapshotKey).Err(); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		cs.logger.Info("Redis cache cleared", zap.Int("node_keys", deleted))
	}

	cs.inMemoryStore.Range(func(key, _ any) bool {
		cs.inMemoryStore.Delete(key)
		return true
	})
	cs.logger.Info("in-memory cache cleared")
	return nil
}

func (cs *CacheService) GetCacheStats(ctx context.Context) map[string]any {
	mode := cs.getMode()
	stats := map[string]any{
		"mode":    string(mode),
		"enabled": cs.cfg.Redis.Enabled,
	}

	if mode == CacheModeRedis && cs.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if dbSize, err := cs.redis.DBSize(ctx).Result(); err == nil {
			stats["redis_keys"] = dbSize
		}
	}

	inMemCount := 0
	cs.inMemoryStore.Range(func(_, _ any) bool {
		inMemCount++
		return true
	})
	stats["in_memory_keys"] = inMemCount

	return stats
}
