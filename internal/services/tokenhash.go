package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

const verificationHashContext = "task-platform 2026-01-01 email verification token"

// TokenHasher computes keyed BLAKE3 digests of opaque tokens so that only
// digests are stored.
type TokenHasher struct {
	key [32]byte
}

func NewTokenHasher(secret string) *TokenHasher {
	h := &TokenHasher{}
	blake3.DeriveKey(verificationHashContext, []byte(secret), h.key[:])
	return h
}

func (h *TokenHasher) Hash(token string) string {
	hasher, err := blake3.NewKeyed(h.key[:])
	if err != nil {
		panic("services: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}

// newOpaqueToken returns 64 hex characters of randomness.
func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
