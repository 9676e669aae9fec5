package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/api"
	"github.com/resumeai-platform/resumeai/internal/auth"
)

// Lister reads entries. *Repository satisfies it.
type Lister interface {
	List(ctx context.Context, params ListParams) ([]Entry, int64, error)
}

type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// ListMine returns the caller's own usage history.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := parseListParams(r)
	params.AccountID = &userID
	h.list(w, r, params)
}

// ListAll serves the admin audit listing, optionally narrowed by ?account_id=.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid account_id"))
			return
		}
		params.AccountID = &id
	}
	h.list(w, r, params)
}

// ListAccount serves the admin listing for the account in the {id} route parameter.
func (h *Handler) ListAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.ErrAccountNotFound)
		return
	}
	params := parseListParams(r)
	params.AccountID = &id
	h.list(w, r, params)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, params ListParams) {
	entries, total, err := h.repo.List(r.Context(), params)
	if err != nil {
		slog.Error("listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}
	return params
}
