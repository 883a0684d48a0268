package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testAPIKey = "test-api-key"

func TestFrontendDigest(t *testing.T) {
	keyHash := sha256.Sum256([]byte(testAPIKey))
	sum := sha256.Sum256([]byte("alice" + hex.EncodeToString(keyHash[:])))

	assert.Equal(t, hex.EncodeToString(sum[:]), FrontendDigest("alice", testAPIKey))
	assert.Len(t, FrontendDigest("alice", testAPIKey), 64)
}

func TestVerifyFrontendToken(t *testing.T) {
	id, ok := VerifyFrontendToken(FrontendToken("alice", testAPIKey), testAPIKey)
	assert.True(t, ok)
	assert.Equal(t, "alice", id)
}

func TestVerifyFrontendTokenRejectsEveryFlippedDigit(t *testing.T) {
	digest := FrontendDigest("alice", testAPIKey)

	for i := range digest {
		flipped := []byte(digest)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}

		id, ok := VerifyFrontendToken("alice:"+string(flipped), testAPIKey)
		assert.False(t, ok, "flipped position %d should fail", i)
		assert.Empty(t, id)
	}
}

func TestVerifyFrontendTokenRejections(t *testing.T) {
	valid := FrontendDigest("alice", testAPIKey)

	tests := []struct {
		name  string
		token string
	}{
		{"no separator", "alice" + valid},
		{"extra separator", "alice:" + valid + ":x"},
		{"empty identity", ":" + valid},
		{"other identity", "bob:" + valid},
		{"short digest", "alice:" + valid[:32]},
		{"empty digest", "alice:"},
		{"signed with other key", FrontendToken("alice", "other-key")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := VerifyFrontendToken(tt.token, testAPIKey)
			assert.False(t, ok)
			assert.Empty(t, id)
		})
	}
}
