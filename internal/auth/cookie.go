package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// Session cookie attributes.
const (
	SessionCookieName = "aos_session"
	SessionCookieTTL  = 30 * 24 * time.Hour
)

var cookieKeyInfo = []byte("scry-live session cookie v1")

// CookieIssuer signs and verifies the session cookie. The cookie value is a
// compact HS256 JWT whose subject is the identity.
type CookieIssuer struct {
	key      []byte
	ttl      time.Duration
	timeFunc func() time.Time
}

// NewCookieIssuer derives the signing key from secret.
func NewCookieIssuer(secret string) (*CookieIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("cookie secret must be at least 32 characters")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, cookieKeyInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive cookie key: %w", err)
	}

	return &CookieIssuer{
		key:      key,
		ttl:      SessionCookieTTL,
		timeFunc: time.Now,
	}, nil
}

// Issue returns a signed session cookie for identity.
func (c *CookieIssuer) Issue(identity string) (*http.Cookie, error) {
	now := c.timeFunc()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}

	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl / time.Second),
		Expires:  now.Add(c.ttl),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// Verify returns the identity carried by a cookie value.
func (c *CookieIssuer) Verify(value string) (string, error) {
	now := c.timeFunc()
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", mapJWTError(err), err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return claims.Subject, nil
}
