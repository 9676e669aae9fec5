package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := svc.ValidateAccessToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
		})
	}
}

// AdminOnly rejects callers whose email is not accepted by isAdmin.
// It must run after Middleware.
func AdminOnly(isAdmin func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserClaims(r.Context())
			if claims == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}
			if !isAdmin(claims.Email) {
				api.HandleError(w, api.ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUserClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// UserID returns the authenticated account id, or false when the request
// carries no valid claims.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
