package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xandpulse/models"
)

type fakeLister struct {
	mu    sync.Mutex
	views map[string][]models.Pod
	fail  map[string]bool
	calls []string
}

func (f *fakeLister) GetPods(_ context.Context, addr string) (*models.PodsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addr)
	if f.fail[addr] {
		return nil, fmt.Errorf("dial %s: connection refused", addr)
	}
	return &models.PodsResponse{Pods: f.views[addr], TotalCount: len(f.views[addr])}, nil
}

func TestPodSource_FetchAllMergesSeeds(t *testing.T) {
	lister := &fakeLister{views: map[string][]models.Pod{
		"seed-1:6000": {
			{Pubkey: "pk-b", LastSeenTimestamp: 100, Version: "old"},
			{Pubkey: "pk-a", LastSeenTimestamp: 50},
			{Pubkey: "", LastSeenTimestamp: 999},
		},
		"seed-2:6000": {
			{Pubkey: "pk-b", LastSeenTimestamp: 200, Version: "new"},
			{Pubkey: "pk-c", LastSeenTimestamp: 10},
		},
	}}
	ps := NewPodSource(lister, []string{"seed-1:6000", "seed-2:6000"}, zap.NewNop())

	pods, err := ps.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pods, 3)

	assert.Equal(t, "pk-a", pods[0].Pubkey)
	assert.Equal(t, "pk-b", pods[1].Pubkey)
	assert.Equal(t, "pk-c", pods[2].Pubkey)
	assert.Equal(t, "new", pods[1].Version, "freshest report wins")
	assert.ElementsMatch(t, []string{"seed-1:6000", "seed-2:6000"}, lister.calls)
}

func TestPodSource_PartialFailure(t *testing.T) {
	lister := &fakeLister{
		views: map[string][]models.Pod{"good:6000": {{Pubkey: "pk-a"}}},
		fail:  map[string]bool{"bad:6000": true},
	}
	ps := NewPodSource(lister, []string{"bad:6000", "good:6000"}, zap.NewNop())

	pods, err := ps.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, pods, 1)
}

func TestPodSource_AllSeedsFail(t *testing.T) {
	lister := &fakeLister{fail: map[string]bool{"a:6000": true, "b:6000": true}}
	ps := NewPodSource(lister, []string{"a:6000", "b:6000"}, zap.NewNop())

	_, err := ps.FetchAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 seed nodes failed")
}

func TestPodSource_NoSeeds(t *testing.T) {
	ps := NewPodSource(&fakeLister{}, nil, zap.NewNop())

	_, err := ps.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestPodSource_FetchOne(t *testing.T) {
	lister := &fakeLister{views: map[string][]models.Pod{
		"seed:6000": {{Pubkey: "pk-a", Address: "1.1.1.1:9001"}},
	}}
	ps := NewPodSource(lister, []string{"seed:6000"}, zap.NewNop())

	pod, found, err := ps.FetchOne(context.Background(), "pk-a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1.1.1.1:9001", pod.Address)

	_, found, err = ps.FetchOne(context.Background(), "pk-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPodSource_OverHTTP(t *testing.T) {
	addr := newPodServer(t, []models.Pod{{Pubkey: "pk-http", Version: "0.8.0"}})
	ps := NewPodSource(testClient(1), []string{addr}, zap.NewNop())

	pods, err := ps.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, "pk-http", pods[0].Pubkey)
}

var _ PodFetcher = (*PodSource)(nil)
