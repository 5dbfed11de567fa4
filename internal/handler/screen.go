package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/advenue/screen-server/internal/httputil"
	"github.com/advenue/screen-server/internal/service"
)

// ScreenHandler serves the endpoints a paired device calls.
type ScreenHandler struct {
	screenService  *service.ScreenService
	displayService *service.DisplayService
	events         *EventsHandler
	auth           func(http.Handler) http.Handler
}

func NewScreenHandler(
	screenService *service.ScreenService,
	displayService *service.DisplayService,
	events *EventsHandler,
	auth func(http.Handler) http.Handler,
) *ScreenHandler {
	return &ScreenHandler{
		screenService:  screenService,
		displayService: displayService,
		events:         events,
		auth:           auth,
	}
}

func (h *ScreenHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/validate-token", h.ValidateToken)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/{screenId}/sequence", h.Sequence)
		r.Post("/{screenId}/next", h.Next)
		r.Get("/{screenId}/events", h.events.ServeHTTP)
	})

	return r
}

type validateTokenRequest struct {
	ScreenID string `json:"screenId" validate:"required,max=64"`
	Token    string `json:"token" validate:"required"`
}

// POST /v1/screens/validate-token
func (h *ScreenHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.screenService.ValidateToken(r.Context(), req.ScreenID, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Valid {
		writeJSON(w, httputil.StatusFromCode(result.Error.Code), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /v1/screens/{screenId}/sequence
func (h *ScreenHandler) Sequence(w http.ResponseWriter, r *http.Request) {
	state := h.displayService.GetDisplaySequence(r.Context(), chi.URLParam(r, "screenId"))
	writeJSON(w, http.StatusOK, state)
}

// POST /v1/screens/{screenId}/next
func (h *ScreenHandler) Next(w http.ResponseWriter, r *http.Request) {
	item, err := h.displayService.NextItem(r.Context(), chi.URLParam(r, "screenId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}
