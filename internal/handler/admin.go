package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/advenue/screen-server/internal/audit"
	"github.com/advenue/screen-server/internal/catalog"
	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/playback"
	"github.com/advenue/screen-server/internal/sse"
)

type CampaignFinder interface {
	FindCampaign(ctx context.Context, id string) (*model.Campaign, error)
}

// AdminHandler exposes operator endpoints. Mount it behind the operator auth
// middleware.
type AdminHandler struct {
	cache     *catalog.Cache
	campaigns CampaignFinder
	players   *playback.Manager
	broker    *sse.Broker
}

func NewAdminHandler(cache *catalog.Cache, campaigns CampaignFinder, players *playback.Manager, broker *sse.Broker) *AdminHandler {
	return &AdminHandler{
		cache:     cache,
		campaigns: campaigns,
		players:   players,
		broker:    broker,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/catalog/refresh", h.RefreshCatalog)
	r.Get("/campaigns/{campaignId}", h.Campaign)
	r.Get("/status", h.Status)

	return r
}

// POST /admin/catalog/refresh
func (h *AdminHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	changed, err := h.cache.Refresh(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("manual catalog refresh failed")
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Catalog refresh failed", err))
		return
	}

	snap := h.cache.Snapshot()
	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventCatalogRefreshReq,
		Details: map[string]interface{}{
			"changed": changed,
			"version": int64(snap.Version),
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"version": snap.Version,
	})
}

// GET /admin/campaigns/{campaignId}
// Campaign reads straight from the catalog source, so operators can see why a
// campaign is or is not on screens. live tells whether the cached catalog
// currently serves it.
func (h *AdminHandler) Campaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignId")

	c, err := h.campaigns.FindCampaign(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("campaignId", id).Msg("campaign lookup failed")
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Campaign lookup failed", err))
		return
	}
	if c == nil {
		writeError(w, apperrors.NotFound("Campaign"))
		return
	}

	snap := h.cache.Snapshot()
	live := false
	for i := range snap.Campaigns {
		if snap.Campaigns[i].ID == id {
			live = true
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaign":       c,
		"live":           live,
		"catalogVersion": snap.Version,
	})
}

// GET /admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.cache.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog": map[string]any{
			"version":       snap.Version,
			"loadedAt":      snap.LoadedAt,
			"campaigns":     len(snap.Campaigns),
			"customContent": len(snap.CustomByID),
		},
		"activePlayers": h.players.Len(),
		"sseClients":    h.broker.TotalClients(),
	})
}
