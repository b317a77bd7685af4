package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
)

const tokenEntropyBytes = 20

var tokenEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// GenerateSessionToken returns a fresh high-entropy secret encoded as a
// lowercase unpadded base32 string, suitable for cookie transport.
func GenerateSessionToken() (string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// SessionIDFromToken derives the storage key for a raw token: lowercase hex
// SHA-256 of its UTF-8 bytes. The digest is unsalted so every process derives
// the same id, and the store never holds a usable credential. Any string is a
// valid input; unknown tokens simply fail to match a row.
func SessionIDFromToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
