package quote

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// Handler exposes REST endpoints for quote management.
type Handler struct {
	Service *Service
}

type createRequest struct {
	CustomerID string   `json:"customer_id"`
	Markup     *float64 `json:"markup"`
	Discount   float64  `json:"discount"`
	Strategy   string   `json:"strategy"`
	TripStart  string   `json:"trip_start"`
	TripDays   int      `json:"trip_days"`
	Currency   string   `json:"currency"`
}

type updateRequest struct {
	Markup    *float64 `json:"markup"`
	Discount  *float64 `json:"discount"`
	Strategy  *string  `json:"strategy"`
	Reference *string  `json:"reference"`
	TripStart *string  `json:"trip_start"`
	TripDays  *int     `json:"trip_days"`
	Currency  *string  `json:"currency"`
}

type itemRequest struct {
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Cost       float64         `json:"cost"`
	Markup     float64         `json:"markup"`
	MarkupType string          `json:"markup_type"`
	Quantity   int             `json:"quantity"`
	Day        int             `json:"day"`
	Details    json.RawMessage `json:"details"`
}

type reorderRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type sendRequest struct {
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

// List handles GET /api/v1/quotes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	query := r.URL.Query()
	quotes, total, err := h.Service.List(r.Context(), query.Get("customer_id"), query.Get("status"), page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       quotes,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Create handles POST /api/v1/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.Service.Create(r.Context(), CreateInput{
		CustomerID: req.CustomerID,
		Markup:     req.Markup,
		Discount:   req.Discount,
		Strategy:   req.Strategy,
		TripStart:  req.TripStart,
		TripDays:   req.TripDays,
		Currency:   req.Currency,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/quotes/{quoteID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	quote, err := h.Service.Get(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Update handles PATCH /api/v1/quotes/{quoteID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	updated, err := h.Service.Update(r.Context(), chi.URLParam(r, "quoteID"), UpdateInput(req))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/quotes/{quoteID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "quoteID")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/quotes/{quoteID}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItem(w, r)
	if !ok {
		return
	}
	quote, err := h.Service.AddItem(r.Context(), chi.URLParam(r, "quoteID"), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, quote)
}

// UpdateItem handles PUT /api/v1/quotes/{quoteID}/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItem(w, r)
	if !ok {
		return
	}
	quote, err := h.Service.UpdateItem(r.Context(), chi.URLParam(r, "quoteID"), chi.URLParam(r, "itemID"), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// RemoveItem handles DELETE /api/v1/quotes/{quoteID}/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	quote, err := h.Service.RemoveItem(r.Context(), chi.URLParam(r, "quoteID"), chi.URLParam(r, "itemID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// ReorderItems handles PUT /api/v1/quotes/{quoteID}/items/order.
func (h *Handler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	quote, err := h.Service.ReorderItems(r.Context(), chi.URLParam(r, "quoteID"), req.ItemIDs)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Send handles POST /api/v1/quotes/{quoteID}/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if r.Body != nil {
		// an empty body means defaults
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	quote, err := h.Service.Send(r.Context(), chi.URLParam(r, "quoteID"), SendInput{
		TemplateName: req.Template,
		Variables:    req.Variables,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Expire handles POST /api/v1/quotes/{quoteID}/expire.
func (h *Handler) Expire(w http.ResponseWriter, r *http.Request) {
	quote, err := h.Service.Expire(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Portal handles GET /api/v1/quotes/{quoteID}/portal.
func (h *Handler) Portal(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Portal(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

func decodeItem(w http.ResponseWriter, r *http.Request) (ItemInput, bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return ItemInput{}, false
	}
	return ItemInput(req), true
}
