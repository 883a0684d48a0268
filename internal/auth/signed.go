package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/scry-live/internal/platform/logger"
)

// SignedTokenVerifier checks user tokens signed by the cloud with RS256.
type SignedTokenVerifier struct {
	key      *rsa.PublicKey
	issuer   string
	leeway   time.Duration
	timeFunc func() time.Time
}

// NewSignedTokenVerifier parses publicKeyPEM and returns a verifier that
// accepts only tokens issued by issuer.
func NewSignedTokenVerifier(publicKeyPEM, issuer string, leeway time.Duration) (*SignedTokenVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse user token public key: %w", err)
	}
	if issuer == "" {
		return nil, errors.New("user token issuer must not be empty")
	}
	return &SignedTokenVerifier{
		key:      key,
		issuer:   issuer,
		leeway:   leeway,
		timeFunc: time.Now,
	}, nil
}

// Verify validates token and returns its subject.
func (v *SignedTokenVerifier) Verify(ctx context.Context, token string) (string, error) {
	log := logger.FromContext(ctx)
	now := v.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(func() time.Time {
			return now
		}),
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.key, nil
		},
		parserOpts...)
	if err != nil {
		mapped := mapJWTError(err)
		log.Debug("signed user token rejected", "reason", mapped, "error", err)
		return "", fmt.Errorf("%w: %v", mapped, err)
	}

	if claims.IssuedAt == nil {
		return "", fmt.Errorf("%w: iat", ErrMissingClaim)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return claims.Subject, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMissingClaim
	default:
		return ErrInvalidSignature
	}
}
