package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "resumeai"
	audienceAccess  = "resumeai:access"
	audienceRefresh = "resumeai:refresh"
)

// ErrTokenExpired lets callers tell an expired token from a forged one.
var ErrTokenExpired = errors.New("token expired")

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AccessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID  string `json:"uid"`
	TokenID string `json:"tid"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func registered(audience, subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

// GenerateTokenPair signs an access and a refresh token for the account and
// returns the refresh token id, which the caller stores for rotation.
func (m *JWTManager) GenerateTokenPair(userID, email string) (*TokenPair, string, error) {
	now := time.Now()

	accessStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID:           userID,
		Email:            email,
		RegisteredClaims: registered(audienceAccess, userID, now, m.accessExpiry),
	}).SignedString(m.accessSecret)
	if err != nil {
		return nil, "", fmt.Errorf("signing access token: %w", err)
	}

	tokenID := uuid.NewString()
	refreshStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID:           userID,
		TokenID:          tokenID,
		RegisteredClaims: registered(audienceRefresh, userID, now, m.refreshExpiry),
	}).SignedString(m.refreshSecret)
	if err != nil {
		return nil, "", fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
		ExpiresIn:    int64(m.accessExpiry.Seconds()),
	}, tokenID, nil
}

func (m *JWTManager) ValidateAccessToken(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenStr, claims, m.accessSecret, audienceAccess); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("access token has no user id")
	}
	return claims, nil
}

func (m *JWTManager) ValidateRefreshToken(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenStr, claims, m.refreshSecret, audienceRefresh); err != nil {
		return nil, fmt.Errorf("parsing refresh token: %w", err)
	}
	if claims.UserID == "" || claims.TokenID == "" {
		return nil, fmt.Errorf("refresh token is missing user or token id")
	}
	return claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func (m *JWTManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}
