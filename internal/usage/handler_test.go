package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeai-platform/resumeai/internal/auth"
)

func TestWriteError(t *testing.T) {
	end := date(2024, 2, 15)

	t.Run("blocked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, &BlockedError{Reason: "fraud"})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Account blocked", body["error"])
		assert.Equal(t, "fraud", body["reason"])
		assert.Equal(t, true, body["blocked"])
	})

	t.Run("exhausted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, fmt.Errorf("generate: %w", &QuotaExhaustedError{Kind: KindCover, PeriodEnd: end}))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		var body struct {
			Error string `json:"error"`
			Usage struct {
				Remaining int    `json:"remaining"`
				PeriodEnd string `json:"period_end"`
				Type      string `json:"type"`
			} `json:"usage"`
			LimitReached bool `json:"limit_reached"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Monthly cover letter limit reached", body.Error)
		assert.Equal(t, 0, body.Usage.Remaining)
		assert.Equal(t, "2024-02-15T12:00:00Z", body.Usage.PeriodEnd)
		assert.Equal(t, "cover", body.Usage.Type)
		assert.True(t, body.LimitReached)
	})

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrAccountNotFound, http.StatusNotFound},
		{"rate limited", fmt.Errorf("%w: max 3", ErrRateLimited), http.StatusTooManyRequests},
		{"invalid kind", ErrInvalidKind, http.StatusBadRequest},
		{"missing reason", ErrBlockReasonRequired, http.StatusBadRequest},
		{"invalid limit", ErrInvalidLimit, http.StatusBadRequest},
		{"persistence", errors.New("pool closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	store := newMemStore()
	id := store.seed(activeAccount(date(2024, 1, 15), 3, 0))
	h := NewHandler(newTestService(store, date(2024, 1, 20)), nil)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
		req = req.WithContext(auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: uuid.NewString()}))
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reports both kinds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
		req = req.WithContext(auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: id.String()}))
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data Status `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 7, body.Data.Resume.Remaining)
		assert.Equal(t, 10, body.Data.Cover.Remaining)
		assert.True(t, body.Data.Cover.CanProceed)
		assert.Equal(t, date(2024, 2, 15), body.Data.Resume.PeriodEnd)
	})
}

func TestHandler_GetIncludesBurstWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newMemStore()
	id := store.seed(activeAccount(date(2024, 1, 15), 0, 0))
	svc := newTestService(store, date(2024, 1, 20))
	guard := NewGuard(svc, NewRateLimiter(rdb), 5)

	_, err := guard.Run(context.Background(), id, KindResume, succeed)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	req = req.WithContext(auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: id.String()}))
	rec := httptest.NewRecorder()
	NewHandler(svc, guard).Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Burst)
	assert.Equal(t, 1, body.Data.Burst.UsedLastMinute)
	assert.Equal(t, 5, body.Data.Burst.MaxPerMinute)
}
