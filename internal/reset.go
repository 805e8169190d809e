package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const resetSecretSize = 32

// NewResetToken returns a fresh random password-reset token in its
// transport encoding (base64url, no padding). The raw token is handed to
// the notification collaborator once and never persisted.
func NewResetToken() (string, error) {
	var raw [resetSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// FingerprintResetToken derives the deterministic HMAC-SHA256 fingerprint
// of a raw reset token under a server-side key. Being deterministic, the
// fingerprint is directly usable as an equality-indexed lookup column, so
// the store never has to scan candidate hashes.
func FingerprintResetToken(key []byte, rawToken string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(rawToken))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateResetTokenShape rejects tokens that cannot possibly have been
// issued by NewResetToken, cheaply and before any store round-trip.
func ValidateResetTokenShape(rawToken string) error {
	decoded, err := base64.RawURLEncoding.DecodeString(rawToken)
	if err != nil {
		return errors.New("invalid reset token encoding")
	}
	if len(decoded) != resetSecretSize {
		return errors.New("invalid reset token size")
	}
	return nil
}
