package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// FrontendDigest returns the digest half of a frontend token for identity:
// hex(sha256(identity + hex(sha256(apiKey)))).
func FrontendDigest(identity, apiKey string) string {
	hashedKey := sha256.Sum256([]byte(apiKey))

	h := sha256.New()
	h.Write([]byte(identity))
	h.Write([]byte(hex.EncodeToString(hashedKey[:])))
	return hex.EncodeToString(h.Sum(nil))
}

// FrontendToken returns the complete "<identity>:<digest>" token.
func FrontendToken(identity, apiKey string) string {
	return identity + ":" + FrontendDigest(identity, apiKey)
}

// VerifyFrontendToken checks a "<identity>:<digest>" token and returns the
// identity when the digest matches. The digest comparison is constant-time,
// and a failure never says which part was wrong.
func VerifyFrontendToken(token, apiKey string) (string, bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	identity, digest := parts[0], parts[1]

	expected := FrontendDigest(identity, apiKey)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(expected)) != 1 {
		return "", false
	}
	return identity, true
}
