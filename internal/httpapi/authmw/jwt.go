// Package authmw guards the ingest and subscribe surfaces of the HTTP
// façade. Adapted from the teacher's internal/auth JWT manager and
// internal/middleware bearer-auth handler: same claims-and-secret shape,
// narrowed to a single service-level audience instead of per-user login,
// since this domain has no user accounts.
package authmw

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingHeader = errors.New("authorization header is required")
	ErrMalformed     = errors.New("invalid authorization header format")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidToken  = errors.New("invalid or malformed token")
)

// Claims identifies the calling service/operator, not an end user.
type Claims struct {
	Subject string `json:"subject"`
	jwt.RegisteredClaims
}

// Manager issues and validates bearer tokens for /ingest and /subscribe.
type Manager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewManager(secretKey string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secretKey: []byte(secretKey), ttl: ttl}
}

func (m *Manager) Issue(subject string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "marketpulse-core",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate extracts and verifies the bearer token from an Authorization
// header value (e.g. "Bearer <token>").
func (m *Manager) Validate(authHeader string) (*Claims, error) {
	if authHeader == "" {
		return nil, ErrMissingHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
