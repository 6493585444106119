package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResetTokenTTLMinutes is how long a password-reset token stays valid.
const ResetTokenTTLMinutes = 10

// NewResetToken generates a random password-reset token. The raw token is
// mailed to the user; only its hash is ever persisted.
func NewResetToken() (raw, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken returns the one-way hash stored for, and compared against,
// a client-supplied reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
