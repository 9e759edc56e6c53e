package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xandpulse/models"
)

// PodFetcher supplies raw pod records.
type PodFetcher interface {
	FetchAll(ctx context.Context) ([]models.Pod, error)
	FetchOne(ctx context.Context, pubkey string) (models.Pod, bool, error)
}

// podLister is the slice of PRPCClient the source needs.
type podLister interface {
	GetPods(ctx context.Context, nodeAddr string) (*models.PodsResponse, error)
}

// PodSource merges the gossip views of a set of seed nodes into one pod list.
type PodSource struct {
	client podLister
	seeds  []string
	logger *zap.Logger
}

func NewPodSource(client podLister, seeds []string, logger *zap.Logger) *PodSource {
	return &PodSource{
		client: client,
		seeds:  seeds,
		logger: logger.Named("pod-source"),
	}
}

// FetchAll queries every seed concurrently. Pods are deduplicated by pubkey,
// keeping the freshest report, and returned sorted by pubkey. It fails only
// when no seed answers.
func (ps *PodSource) FetchAll(ctx context.Context) ([]models.Pod, error) {
	if len(ps.seeds) == 0 {
		return nil, errors.New("no seed nodes configured")
	}

	var (
		mu       sync.Mutex
		merged   = make(map[string]models.Pod)
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, seed := range ps.seeds {
		seed := seed
		g.Go(func() error {
			resp, err := ps.client.GetPods(gctx, seed)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures++
				lastErr = err
				ps.logger.Warn("seed query failed", zap.String("seed", seed), zap.Error(err))
				return nil
			}

			for _, pod := range resp.Pods {
				if pod.Pubkey == "" {
					continue
				}
				if existing, ok := merged[pod.Pubkey]; ok && existing.LastSeenTimestamp >= pod.LastSeenTimestamp {
					continue
				}
				merged[pod.Pubkey] = pod
			}
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(ps.seeds) {
		return nil, fmt.Errorf("all %d seed nodes failed: %w", failures, lastErr)
	}

	pods := make([]models.Pod, 0, len(merged))
	for _, p := range merged {
		pods = append(pods, p)
	}
	sort.Slice(pods, func(i, j int) bool {
		return pods[i].Pubkey < pods[j].Pubkey
	})

	ps.logger.Debug("pods fetched",
		zap.Int("pods", len(pods)),
		zap.Int("seeds", len(ps.seeds)),
		zap.Int("failed_seeds", failures),
	)
	return pods, nil
}

// FetchOne returns the pod with the given pubkey; false when no seed knows it.
func (ps *PodSource) FetchOne(ctx context.Context, pubkey string) (models.Pod, bool, error) {
	pods, err := ps.FetchAll(ctx)
	if err != nil {
		return models.Pod{}, false, err
	}
	for _, p := range pods {
		if p.Pubkey == pubkey {
			return p, true, nil
		}
	}
	return models.Pod{}, false, nil
}
