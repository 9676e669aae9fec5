package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/api"
	"github.com/resumeai-platform/resumeai/internal/documents"
	"github.com/resumeai-platform/resumeai/internal/usage"
	"github.com/resumeai-platform/resumeai/internal/users"
)

// QuotaAdmin is the slice of usage.Service the admin endpoints drive.
type QuotaAdmin interface {
	Status(ctx context.Context, id uuid.UUID) (*usage.Status, error)
	Block(ctx context.Context, id uuid.UUID, reason string) error
	Unblock(ctx context.Context, id uuid.UUID) error
	UpdateLimits(ctx context.Context, id uuid.UUID, limits usage.Limits) error
}

// Accounts reads user rows. *users.Service satisfies it.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	Stats(ctx context.Context) (*users.Stats, error)
}

// DocumentCounter counts stored documents. documents.Repository satisfies it.
type DocumentCounter interface {
	Count(ctx context.Context, userID uuid.UUID, t documents.Type) (int64, error)
}

type Handler struct {
	quota    QuotaAdmin
	accounts Accounts
	docs     DocumentCounter
	validate *validator.Validate
}

func NewHandler(quota QuotaAdmin, accounts Accounts, docs DocumentCounter) *Handler {
	return &Handler{
		quota:    quota,
		accounts: accounts,
		docs:     docs,
		validate: validator.New(),
	}
}

type BlockRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type LimitsRequest struct {
	ResumeLimit *int `json:"resume_limit" validate:"omitempty,min=1"`
	CoverLimit  *int `json:"cover_limit" validate:"omitempty,min=1"`
}

// UserDetails is the admin view of one account.
type UserDetails struct {
	User      *users.User      `json:"user"`
	Usage     *usage.Status    `json:"usage"`
	Documents map[string]int64 `json:"documents"`
}

func accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.ErrAccountNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return false
	}
	return true
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req BlockRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.quota.Block(r.Context(), id, req.Reason); err != nil {
		usage.WriteError(w, err)
		return
	}
	slog.Info("admin: account blocked", "account_id", id)
	api.JSONMessage(w, http.StatusOK, "user blocked successfully")
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := h.quota.Unblock(r.Context(), id); err != nil {
		usage.WriteError(w, err)
		return
	}
	slog.Info("admin: account unblocked", "account_id", id)
	api.JSONMessage(w, http.StatusOK, "user unblocked successfully")
}

func (h *Handler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req LimitsRequest
	if !h.decode(w, r, &req) {
		return
	}

	limits := usage.Limits{Resume: req.ResumeLimit, Cover: req.CoverLimit}
	if err := h.quota.UpdateLimits(r.Context(), id, limits); err != nil {
		usage.WriteError(w, err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "user limits updated successfully")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	// Status first: it initializes legacy quota fields the user row then reflects.
	status, err := h.quota.Status(r.Context(), id)
	if err != nil {
		usage.WriteError(w, err)
		return
	}

	user, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("admin: getting user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrAccountNotFound)
		return
	}

	counts := make(map[string]int64, 3)
	for _, t := range []documents.Type{documents.TypeResumes, documents.TypeCovers, documents.TypeProposals} {
		n, err := h.docs.Count(r.Context(), id, t)
		if err != nil {
			slog.Error("admin: counting documents", "error", err, "type", t)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		counts[string(t)] = n
	}

	api.JSON(w, http.StatusOK, UserDetails{User: user, Usage: status, Documents: counts})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Stats(r.Context())
	if err != nil {
		slog.Error("admin: aggregating stats", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, stats)
}
