package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/repository"
)

type failingRepo struct {
	repository.CatalogRepository
}

func (failingRepo) ListActiveCampaigns(context.Context, time.Time) ([]model.Campaign, error) {
	return nil, errors.New("db down")
}

func TestCache_Refresh(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCatalog()
	repo.PutCampaign(model.Campaign{ID: "c1", Status: model.CampaignStatusActive, Media: []model.MediaFile{{ID: "m1"}}})
	repo.PutCustomContent(model.CustomContent{ID: "k1", Type: model.CustomContentMenu})

	cache := NewCache(repo, time.Minute)

	var notified atomic.Int32
	cache.Subscribe(func(*Snapshot) { notified.Add(1) })

	t.Run("initial snapshot is empty", func(t *testing.T) {
		snap := cache.Snapshot()
		require.NotNil(t, snap)
		assert.Equal(t, uint64(0), snap.Version)
		assert.Empty(t, snap.Campaigns)
	})

	t.Run("first refresh publishes version 1", func(t *testing.T) {
		changed, err := cache.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, changed)

		snap := cache.Snapshot()
		assert.Equal(t, uint64(1), snap.Version)
		assert.Len(t, snap.Campaigns, 1)
		assert.Contains(t, snap.CustomByID, "k1")
		assert.Equal(t, int32(1), notified.Load())
	})

	t.Run("unchanged catalog keeps the version", func(t *testing.T) {
		changed, err := cache.Refresh(ctx)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, uint64(1), cache.Snapshot().Version)
		assert.Equal(t, int32(1), notified.Load())
	})

	t.Run("change publishes a new version and leaves old snapshot intact", func(t *testing.T) {
		old := cache.Snapshot()
		repo.DeleteCampaign("c1")

		changed, err := cache.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, uint64(2), cache.Snapshot().Version)
		assert.Empty(t, cache.Snapshot().Campaigns)
		assert.Len(t, old.Campaigns, 1)
		assert.Equal(t, int32(2), notified.Load())
	})

	t.Run("repository error keeps the current snapshot", func(t *testing.T) {
		before := cache.Snapshot()
		cache.repo = failingRepo{}

		_, err := cache.Refresh(ctx)
		assert.Error(t, err)
		assert.Same(t, before, cache.Snapshot())
	})
}

func TestCache_StartStop(t *testing.T) {
	repo := repository.NewMemoryCatalog()
	repo.PutCampaign(model.Campaign{ID: "c1", Status: model.CampaignStatusActive})

	cache := NewCache(repo, 10*time.Millisecond)
	require.NoError(t, cache.Start(context.Background()))
	assert.Equal(t, uint64(1), cache.Snapshot().Version)

	repo.PutCampaign(model.Campaign{ID: "c2", Status: model.CampaignStatusActive})
	assert.Eventually(t, func() bool {
		return cache.Snapshot().Version == 2
	}, time.Second, 5*time.Millisecond)

	cache.Stop()
}
