package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/advenue/screen-server/internal/model"
	"github.com/advenue/screen-server/internal/service"
)

// OwnerHandler serves the owner dashboard. Authenticating the owner is the
// job of whatever sits in front of this service.
type OwnerHandler struct {
	screenService   *service.ScreenService
	settingsService *service.SettingsService
}

func NewOwnerHandler(screenService *service.ScreenService, settingsService *service.SettingsService) *OwnerHandler {
	return &OwnerHandler{
		screenService:   screenService,
		settingsService: settingsService,
	}
}

func (h *OwnerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{ownerId}/screens", h.ListScreens)
	r.Patch("/{ownerId}/screens/{screenId}", h.RenameScreen)
	r.Delete("/{ownerId}/screens/{screenId}", h.Unpair)
	r.Get("/{ownerId}/screens/{screenId}/settings", h.GetSettings)
	r.Put("/{ownerId}/screens/{screenId}/settings", h.UpdateSettings)

	return r
}

// GET /v1/owners/{ownerId}/screens
func (h *OwnerHandler) ListScreens(w http.ResponseWriter, r *http.Request) {
	page := ParsePagination(r)

	screens, err := h.screenService.ListOwnerScreens(r.Context(), chi.URLParam(r, "ownerId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"screens": page.Apply(screens),
		"total":   len(screens),
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

type renameRequest struct {
	CustomName string `json:"customName"`
}

// PATCH /v1/owners/{ownerId}/screens/{screenId}
func (h *OwnerHandler) RenameScreen(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	screen, err := h.screenService.Rename(r.Context(), chi.URLParam(r, "screenId"), chi.URLParam(r, "ownerId"), req.CustomName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, screen)
}

// DELETE /v1/owners/{ownerId}/screens/{screenId}
func (h *OwnerHandler) Unpair(w http.ResponseWriter, r *http.Request) {
	ok, err := h.screenService.Unpair(r.Context(), chi.URLParam(r, "screenId"), chi.URLParam(r, "ownerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// GET /v1/owners/{ownerId}/screens/{screenId}/settings
func (h *OwnerHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetForOwner(r.Context(), chi.URLParam(r, "screenId"), chi.URLParam(r, "ownerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PUT /v1/owners/{ownerId}/screens/{screenId}/settings
func (h *OwnerHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.ScreenSettings
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	settings, err := h.settingsService.Update(r.Context(), chi.URLParam(r, "screenId"), chi.URLParam(r, "ownerId"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
