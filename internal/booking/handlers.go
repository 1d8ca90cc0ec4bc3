package booking

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// Handler exposes REST endpoints for the operations board.
type Handler struct {
	Service *Service
}

type convertRequest struct {
	QuoteID string `json:"quote_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// Convert handles POST /api/v1/bookings.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	booking, err := h.Service.Convert(r.Context(), req.QuoteID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, booking)
}

// List handles GET /api/v1/bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	bookings, total, err := h.Service.List(r.Context(), r.URL.Query().Get("status"), page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       bookings,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/bookings/{bookingID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, booking)
}

// PatchStatus handles PATCH /api/v1/bookings/{bookingID}/status.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	booking, err := h.Service.PatchStatus(r.Context(), chi.URLParam(r, "bookingID"), req.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, booking)
}

// Counts handles GET /api/v1/bookings/counts.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.Counts(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, counts)
}
