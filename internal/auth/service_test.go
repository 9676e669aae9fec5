package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mgr := NewJWTManager("access-secret-32-chars-long!!!!!", "refresh-secret-32-chars-long!!!!", 15*time.Minute, time.Hour)
	return NewService(mgr, rdb), mr
}

func TestService_RefreshRotatesToken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	pair, err := svc.GenerateTokens(ctx, "user-1", "a@example.com")
	require.NoError(t, err)

	next, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email, "email survives refresh")

	_, err = svc.RefreshTokens(ctx, pair.RefreshToken)
	assert.Error(t, err, "a consumed refresh token cannot be replayed")
}

func TestService_LogoutRevokesAllRefreshTokens(t *testing.T) {
	svc, mr := setupService(t)
	ctx := context.Background()

	first, err := svc.GenerateTokens(ctx, "user-2", "b@example.com")
	require.NoError(t, err)
	_, err = svc.GenerateTokens(ctx, "user-2", "b@example.com")
	require.NoError(t, err)
	other, err := svc.GenerateTokens(ctx, "user-3", "c@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "user-2"))

	_, err = svc.RefreshTokens(ctx, first.RefreshToken)
	assert.Error(t, err)
	_, err = svc.RefreshTokens(ctx, other.RefreshToken)
	assert.NoError(t, err, "other users keep their sessions")
	assert.Len(t, mr.Keys(), 1)
}

func TestAdminOnly(t *testing.T) {
	isAdmin := func(email string) bool { return email == "root@example.com" }
	next := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
	h := AdminOnly(isAdmin)(http.HandlerFunc(next))

	cases := []struct {
		name   string
		claims *AccessClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"regular user", &AccessClaims{UserID: "u", Email: "user@example.com"}, http.StatusForbidden},
		{"admin", &AccessClaims{UserID: "a", Email: "root@example.com"}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.claims != nil {
				req = req.WithContext(WithUserClaims(req.Context(), tc.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestUserID(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	ctx := WithUserClaims(context.Background(), &AccessClaims{UserID: "not-a-uuid"})
	_, ok = UserID(ctx)
	assert.False(t, ok)

	ctx = WithUserClaims(context.Background(), &AccessClaims{UserID: "6f1c2a7e-4a55-4c2b-9a51-1d6f1b0e9c11"})
	id, ok := UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a7e-4a55-4c2b-9a51-1d6f1b0e9c11", id.String())
}
