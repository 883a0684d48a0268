package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://prod.augmentos.cloud"

var (
	fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	keyOnce           sync.Once
	testKey, otherKey *rsa.PrivateKey
	testPublicKeyPEM  string
)

// testKeys returns two RSA keys shared by every test in the package; the
// first is trusted by verifiers built with newTestSignedVerifier.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		otherKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKIXPublicKey(&testKey.PublicKey)
		if err != nil {
			panic(err)
		}
		testPublicKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	})
	return testKey, otherKey
}

func newTestSignedVerifier(t *testing.T) *SignedTokenVerifier {
	t.Helper()
	testKeys(t)
	v, err := NewSignedTokenVerifier(testPublicKeyPEM, testIssuer, 0)
	require.NoError(t, err)
	v.timeFunc = func() time.Time { return fixedTime }
	return v
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(fixedTime.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	}
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestSignedTokenVerifierAcceptsValidToken(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestSignedVerifier(t)

	sub, err := v.Verify(context.Background(), signRS256(t, key, validClaims("alice")))
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestSignedTokenVerifierRejections(t *testing.T) {
	key, other := testKeys(t)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				c := validClaims("alice")
				c.ExpiresAt = jwt.NewNumericDate(fixedTime.Add(-time.Minute))
				return signRS256(t, key, c)
			},
			wantErr: ErrExpired,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := validClaims("alice")
				c.Issuer = "https://evil.example.com"
				return signRS256(t, key, c)
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "signed by another key",
			token: func(t *testing.T) string {
				return signRS256(t, other, validClaims("alice"))
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "hmac algorithm",
			token: func(t *testing.T) string {
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("alice")).
					SignedString([]byte(testPublicKeyPEM))
				require.NoError(t, err)
				return token
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return signRS256(t, key, validClaims(""))
			},
			wantErr: ErrMissingClaim,
		},
		{
			name: "missing issued at",
			token: func(t *testing.T) string {
				c := validClaims("alice")
				c.IssuedAt = nil
				return signRS256(t, key, c)
			},
			wantErr: ErrMissingClaim,
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				c := validClaims("alice")
				c.ExpiresAt = nil
				return signRS256(t, key, c)
			},
			wantErr: ErrMissingClaim,
		},
		{
			name: "missing issuer",
			token: func(t *testing.T) string {
				c := validClaims("alice")
				c.Issuer = ""
				return signRS256(t, key, c)
			},
			wantErr: ErrMissingClaim,
		},
		{
			name: "garbage",
			token: func(t *testing.T) string {
				return "this.is.not.a.valid.jwt"
			},
			wantErr: ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestSignedVerifier(t)
			sub, err := v.Verify(context.Background(), tt.token(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sub)
		})
	}
}

func TestSignedTokenVerifierLeeway(t *testing.T) {
	key, _ := testKeys(t)
	v := newTestSignedVerifier(t)
	v.leeway = 2 * time.Minute

	c := validClaims("alice")
	c.ExpiresAt = jwt.NewNumericDate(fixedTime.Add(-time.Minute))

	sub, err := v.Verify(context.Background(), signRS256(t, key, c))
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestNewSignedTokenVerifierRejectsBadKey(t *testing.T) {
	_, err := NewSignedTokenVerifier("not a pem", testIssuer, 0)
	assert.Error(t, err)
}
