package notify

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// Notification is the API representation of an in-app notification.
type Notification struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler exposes REST endpoints for agent notifications.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	rows, err := h.Store.List(r.Context(), unreadOnly, int32(perPage), int32(common.Offset(page, perPage)))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	total, err := h.Store.Count(r.Context(), unreadOnly)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	notifications := make([]Notification, 0, len(rows))
	for _, row := range rows {
		n := Notification{
			ID:    uuidString(row.ID),
			Topic: row.Topic,
			Title: row.Title,
			Body:  row.Body,
			Read:  row.Read,
		}
		if row.CreatedAt.Valid {
			n.CreatedAt = row.CreatedAt.Time
		}
		notifications = append(notifications, n)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       notifications,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := toUUID(chi.URLParam(r, "notificationID"))
	if err != nil {
		common.WriteError(w, common.NotFound("notification"))
		return
	}
	affected, err := h.Store.MarkRead(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if affected == 0 {
		common.WriteError(w, common.NotFound("notification"))
		return
	}
	common.JSONData(w, http.StatusOK, map[string]string{"status": "read"})
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return pgtype.UUID{}, errors.New("notify: invalid id")
	}
	var id pgtype.UUID
	copy(id.Bytes[:], parsed[:])
	id.Valid = true
	return id, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}
