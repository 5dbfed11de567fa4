// Package catalog keeps an immutable, versioned snapshot of the shared
// catalog that every screen reads from.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/metrics"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/repository"
)

// Snapshot is never mutated after publication. Readers may hold on to one for
// a whole selection pass.
type Snapshot struct {
	Version     uint64
	Fingerprint uint64
	LoadedAt    time.Time
	Campaigns   []model.Campaign
	CustomByID  map[string]model.CustomContent
}

// Listener is told about every new snapshot version.
type Listener func(snap *Snapshot)

type Cache struct {
	repo     repository.CatalogRepository
	interval time.Duration
	now      func() time.Time

	current atomic.Pointer[Snapshot]
	refresh sync.Mutex

	mu        sync.RWMutex
	listeners []Listener

	done chan struct{}
	wg   sync.WaitGroup
}

func NewCache(repo repository.CatalogRepository, interval time.Duration) *Cache {
	c := &Cache{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	c.current.Store(&Snapshot{CustomByID: map[string]model.CustomContent{}})
	return c
}

// Snapshot returns the latest published snapshot. It is never nil.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

func (c *Cache) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Refresh reloads the catalog and publishes a new snapshot when its content
// changed. It reports whether a new version was published.
func (c *Cache) Refresh(ctx context.Context) (bool, error) {
	c.refresh.Lock()
	defer c.refresh.Unlock()

	started := time.Now()
	now := c.now()
	campaigns, err := c.repo.ListActiveCampaigns(ctx, now)
	if err != nil {
		return false, fmt.Errorf("list active campaigns: %w", err)
	}
	custom, err := c.repo.ListCustomContent(ctx)
	if err != nil {
		return false, fmt.Errorf("list custom content: %w", err)
	}

	fp, err := fingerprint(campaigns, custom)
	if err != nil {
		return false, err
	}

	prev := c.current.Load()
	if prev.Version > 0 && prev.Fingerprint == fp {
		return false, nil
	}

	byID := make(map[string]model.CustomContent, len(custom))
	for _, cc := range custom {
		byID[cc.ID] = cc
	}

	next := &Snapshot{
		Version:     prev.Version + 1,
		Fingerprint: fp,
		LoadedAt:    now,
		Campaigns:   campaigns,
		CustomByID:  byID,
	}
	c.current.Store(next)
	metrics.RecordCatalogRefresh(next.Version, time.Since(started))

	log.Info().
		Uint64("version", next.Version).
		Int("campaigns", len(campaigns)).
		Int("customContent", len(custom)).
		Msg("catalog snapshot published")

	c.notify(next)
	return true, nil
}

func (c *Cache) notify(snap *Snapshot) {
	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Start loads the catalog once, then polls it every interval until Stop.
func (c *Cache) Start(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.run()
	log.Info().Dur("interval", c.interval).Msg("catalog refresher started")
	return nil
}

func (c *Cache) Stop() {
	close(c.done)
	c.wg.Wait()
	log.Info().Msg("catalog refresher stopped")
}

func (c *Cache) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.interval)
			if _, err := c.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("catalog refresh failed")
			}
			cancel()
		}
	}
}

func fingerprint(campaigns []model.Campaign, custom []model.CustomContent) (uint64, error) {
	h := xxhash.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(campaigns); err != nil {
		return 0, fmt.Errorf("fingerprint campaigns: %w", err)
	}
	if err := enc.Encode(custom); err != nil {
		return 0, fmt.Errorf("fingerprint custom content: %w", err)
	}
	return h.Sum64(), nil
}
