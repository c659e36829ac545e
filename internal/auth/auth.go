// Package auth resolves caller identity from JWT bearer tokens.
//
// Tokens are HMAC-signed and carry the subject, email, and admin flag. With
// no secret configured an ephemeral one is generated for development.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the resolved caller: an opaque subject plus privilege flag.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// Claims extends jwt.RegisteredClaims with the identity fields.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// Manager issues and validates identity tokens.
type Manager struct {
	secret     []byte
	expiration time.Duration
}

// NewManager creates a Manager from the shared secret. An empty secret
// generates an ephemeral one, which invalidates all tokens on restart.
func NewManager(secret string, expiration time.Duration) (*Manager, error) {
	if secret == "" {
		slog.Warn("auth: no JWT secret configured, generating ephemeral secret (not for production)")
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("auth: generate secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}
	if expiration <= 0 {
		expiration = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), expiration: expiration}, nil
}

// Issue creates a signed token for the given identity.
func (m *Manager) Issue(id Identity) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.expiration)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    "rankpilot",
			Audience:  jwt.ClaimStrings{"rankpilot"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Email:   id.Email,
		IsAdmin: id.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate checks the token signature and expiry, returning the identity.
func (m *Manager) Validate(tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token")
	}
	return Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}, nil
}
