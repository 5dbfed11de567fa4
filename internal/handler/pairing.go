package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/advenue/screen-server/internal/errors"
	"github.com/advenue/screen-server/internal/httputil"
	"github.com/advenue/screen-server/internal/service"
)

const pairingCodeHeader = "X-Pairing-Code"

type PairingHandler struct {
	pairingService  *service.PairingService
	rateLimit       func(http.Handler) http.Handler
	statusRateLimit func(http.Handler) http.Handler
}

// NewPairingHandler takes two limiters: status is polled far more often than
// request and validate, so it draws from its own budget.
func NewPairingHandler(
	pairingService *service.PairingService,
	rateLimit func(http.Handler) http.Handler,
	statusRateLimit func(http.Handler) http.Handler,
) *PairingHandler {
	return &PairingHandler{
		pairingService:  pairingService,
		rateLimit:       rateLimit,
		statusRateLimit: statusRateLimit,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if h.rateLimit != nil {
			r.Use(h.rateLimit)
		}
		r.Post("/request", h.CreateRequest)
		r.Post("/validate", h.Validate)
	})
	r.Group(func(r chi.Router) {
		if h.statusRateLimit != nil {
			r.Use(h.statusRateLimit)
		}
		r.Get("/status/{screenId}", h.Status)
	})

	return r
}

type createPairingRequest struct {
	ScreenID          string `json:"screenId" validate:"omitempty,max=64"`
	DeviceFingerprint string `json:"deviceFingerprint" validate:"omitempty,max=256"`
}

// POST /v1/pairing/request
func (h *PairingHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createPairingRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	ticket, err := h.pairingService.CreateRequest(r.Context(), req.ScreenID, req.DeviceFingerprint)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ticket)
}

type validatePairingRequest struct {
	ScreenID string `json:"screenId" validate:"required,max=64"`
	Code     string `json:"code" validate:"required,max=16"`
	OwnerID  string `json:"ownerId" validate:"required,max=128"`
	VenueID  string `json:"venueId" validate:"omitempty,max=128"`
}

// POST /v1/pairing/validate
func (h *PairingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validatePairingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pairingService.Validate(r.Context(), req.ScreenID, req.Code, req.OwnerID, req.VenueID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Success {
		writeJSON(w, httputil.StatusFromCode(result.Error.Code), result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /v1/pairing/status/{screenId}
func (h *PairingHandler) Status(w http.ResponseWriter, r *http.Request) {
	code := r.Header.Get(pairingCodeHeader)
	if code == "" {
		writeError(w, apperrors.MissingRequired(pairingCodeHeader))
		return
	}

	status, err := h.pairingService.Status(r.Context(), chi.URLParam(r, "screenId"), code)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, status)
}
