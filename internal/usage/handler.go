package usage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/resumeai-platform/resumeai/internal/api"
	"github.com/resumeai-platform/resumeai/internal/auth"
)

type Handler struct {
	svc   *Service
	guard *Guard
}

// NewHandler creates the usage handler. guard may be nil, in which case the
// burst window is left out of the response.
func NewHandler(svc *Service, guard *Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// Get reports the caller's remaining quota for both kinds.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	if h.guard != nil {
		burst, err := h.guard.MinuteUsage(r.Context(), id)
		if err != nil {
			slog.Warn("usage: reading burst window", "error", err, "account_id", id)
		}
		status.Burst = burst
	}
	api.JSON(w, http.StatusOK, status)
}

type blockedBody struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Blocked bool   `json:"blocked"`
}

type limitUsage struct {
	Remaining int       `json:"remaining"`
	PeriodEnd time.Time `json:"period_end"`
	Type      Kind      `json:"type"`
}

type limitBody struct {
	Error        string     `json:"error"`
	Usage        limitUsage `json:"usage"`
	LimitReached bool       `json:"limit_reached"`
}

// WriteError renders a usage error. Blocked and exhausted rejections carry
// the structured bodies clients use to explain the refusal.
func WriteError(w http.ResponseWriter, err error) {
	var (
		blocked   *BlockedError
		exhausted *QuotaExhaustedError
	)
	switch {
	case errors.As(err, &blocked):
		api.WriteJSON(w, http.StatusForbidden, blockedBody{
			Error:   DefaultBlockReason,
			Reason:  blocked.Reason,
			Blocked: true,
		})
	case errors.As(err, &exhausted):
		api.WriteJSON(w, http.StatusTooManyRequests, limitBody{
			Error: fmt.Sprintf("Monthly %s limit reached", exhausted.Kind.Label()),
			Usage: limitUsage{
				Remaining: exhausted.Remaining,
				PeriodEnd: exhausted.PeriodEnd,
				Type:      exhausted.Kind,
			},
			LimitReached: true,
		})
	case errors.Is(err, ErrAccountNotFound):
		api.HandleError(w, api.ErrAccountNotFound)
	case errors.Is(err, ErrRateLimited):
		api.HandleError(w, &api.AppError{Code: http.StatusTooManyRequests, Message: err.Error()})
	case errors.Is(err, ErrInvalidKind), errors.Is(err, ErrBlockReasonRequired), errors.Is(err, ErrInvalidLimit):
		api.HandleError(w, api.NewBadRequestError(err.Error()))
	default:
		slog.Error("usage: request failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
