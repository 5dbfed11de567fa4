package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/advenue/screen-server/internal/database"
	"github.com/advenue/screen-server/internal/model"
)

// CatalogRepository reads the shared catalog of campaigns and custom content.
// Writes belong to the dashboard.
type CatalogRepository interface {
	ListActiveCampaigns(ctx context.Context, now time.Time) ([]model.Campaign, error)
	ListCustomContent(ctx context.Context) ([]model.CustomContent, error)
	FindCampaign(ctx context.Context, id string) (*model.Campaign, error)
}

type catalogRepo struct {
	db database.DBTX
}

func NewCatalogRepository(db database.DBTX) CatalogRepository {
	return &catalogRepo{db: db}
}

// ListActiveCampaigns returns active campaigns inside their date window,
// ordered by id, with media attached by position then upload time.
func (r *catalogRepo) ListActiveCampaigns(ctx context.Context, now time.Time) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, `
		SELECT id, advertiser_id, name, category, status, target_url, start_date, end_date, updated_at
		FROM campaigns
		WHERE status = 'active'
			AND (start_date IS NULL OR start_date <= $1)
			AND (end_date IS NULL OR end_date >= $1)
		ORDER BY id
	`, now); err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return campaigns, nil
	}

	var media []model.MediaFile
	if err := r.db.SelectContext(ctx, &media, `
		SELECT m.id, m.campaign_id, m.name, m.media_type, m.url, m.size_bytes, m.duration_seconds, m.uploaded_at
		FROM campaign_media m
		JOIN campaigns c ON c.id = m.campaign_id
		WHERE c.status = 'active'
		ORDER BY m.campaign_id, m.position, m.uploaded_at
	`); err != nil {
		return nil, err
	}

	attachMedia(campaigns, media)
	return campaigns, nil
}

func (r *catalogRepo) ListCustomContent(ctx context.Context) ([]model.CustomContent, error) {
	var items []model.CustomContent
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, owner_id, content_type, title, youtube_url, youtube_id, playlist_id, media_id, updated_at
		FROM custom_content
		ORDER BY id
	`)
	return items, err
}

// FindCampaign loads one campaign with its media, whatever its status. A
// missing campaign yields (nil, nil).
func (r *catalogRepo) FindCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.GetContext(ctx, &c, `
		SELECT id, advertiser_id, name, category, status, target_url, start_date, end_date, updated_at
		FROM campaigns WHERE id = $1
	`, id)
	found, err := HandleNotFound(&c, err)
	if found == nil || err != nil {
		return nil, err
	}

	var media []model.MediaFile
	if err := r.db.SelectContext(ctx, &media, `
		SELECT id, campaign_id, name, media_type, url, size_bytes, duration_seconds, uploaded_at
		FROM campaign_media
		WHERE campaign_id = $1
		ORDER BY position, uploaded_at
	`, id); err != nil {
		return nil, err
	}
	campaigns := []model.Campaign{*found}
	attachMedia(campaigns, media)
	return &campaigns[0], nil
}

func attachMedia(campaigns []model.Campaign, media []model.MediaFile) {
	idx := make(map[string]int, len(campaigns))
	for i := range campaigns {
		idx[campaigns[i].ID] = i
		campaigns[i].Media = []model.MediaFile{}
	}
	for _, m := range media {
		if i, ok := idx[m.CampaignID]; ok {
			campaigns[i].Media = append(campaigns[i].Media, m)
		}
	}
}

// MemoryCatalog is an in-process catalog for tests and the memory backend.
type MemoryCatalog struct {
	mu        sync.RWMutex
	campaigns map[string]model.Campaign
	content   map[string]model.CustomContent
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		campaigns: make(map[string]model.Campaign),
		content:   make(map[string]model.CustomContent),
	}
}

func (m *MemoryCatalog) PutCampaign(c model.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
}

func (m *MemoryCatalog) DeleteCampaign(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
}

func (m *MemoryCatalog) PutCustomContent(c model.CustomContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[c.ID] = c
}

func (m *MemoryCatalog) DeleteCustomContent(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, id)
}

func (m *MemoryCatalog) ListActiveCampaigns(_ context.Context, now time.Time) ([]model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		if !campaignLive(&c, now) {
			continue
		}
		c.Media = append([]model.MediaFile(nil), c.Media...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryCatalog) ListCustomContent(_ context.Context) ([]model.CustomContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.CustomContent, 0, len(m.content))
	for _, c := range m.content {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryCatalog) FindCampaign(_ context.Context, id string) (*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	c.Media = append([]model.MediaFile(nil), c.Media...)
	return &c, nil
}

func campaignLive(c *model.Campaign, now time.Time) bool {
	if c.Status != model.CampaignStatusActive {
		return false
	}
	if c.StartDate != nil && c.StartDate.After(now) {
		return false
	}
	if c.EndDate != nil && c.EndDate.Before(now) {
		return false
	}
	return true
}
