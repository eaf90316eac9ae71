// Package auth issues and validates the signed session cookie that carries
// the session ID across requests.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieClaims represents the JWT claims embedded in the session cookie.
type CookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieManager mints and validates session cookies. The cookie holds a
// signed session ID only; all session state lives server-side.
type CookieManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewCookieManager creates a cookie manager with the given signing secret.
func NewCookieManager(secret, cookieName string, ttl time.Duration, secure bool) *CookieManager {
	return &CookieManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Mint creates a fresh session ID and the signed cookie carrying it.
func (m *CookieManager) Mint() (string, *http.Cookie, error) {
	sid := uuid.New().String()

	now := time.Now().UTC()
	claims := &CookieClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    "cooqu-order",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session cookie: %w", err)
	}

	return sid, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// SessionID extracts and validates the session ID from the request's cookie.
// Returns an error when the cookie is absent, malformed, or expired; callers
// then mint a fresh session.
func (m *CookieManager) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", fmt.Errorf("session cookie: %w", err)
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &CookieClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session cookie: %w", err)
	}

	claims, ok := token.Claims.(*CookieClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid session cookie claims")
	}

	return claims.SessionID, nil
}
