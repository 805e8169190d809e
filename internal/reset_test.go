package internal

import (
	"strings"
	"testing"
)

func TestNewResetTokenShape(t *testing.T) {
	tok, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken failed: %v", err)
	}
	if err := ValidateResetTokenShape(tok); err != nil {
		t.Fatalf("fresh token must validate: %v", err)
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Fatalf("token must be base64url without padding: %q", tok)
	}
}

func TestResetTokensAreUnique(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken failed: %v", err)
	}
	b, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken failed: %v", err)
	}
	if a == b {
		t.Fatal("two tokens must differ")
	}
}

func TestFingerprintIsDeterministicPerKey(t *testing.T) {
	key := []byte("fingerprint-key-0123456789abcdef")
	other := []byte("another-key-aaaaaaaaaaaaaaaaaaaa")

	tok, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken failed: %v", err)
	}

	a := FingerprintResetToken(key, tok)
	b := FingerprintResetToken(key, tok)
	if a != b {
		t.Fatal("same key and token must fingerprint identically")
	}
	if a == FingerprintResetToken(other, tok) {
		t.Fatal("different keys must fingerprint differently")
	}
	if a == tok {
		t.Fatal("fingerprint must not equal the raw token")
	}
}

func TestValidateResetTokenShapeRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "###", "c2hvcnQ", strings.Repeat("A", 100)} {
		if err := ValidateResetTokenShape(tok); err == nil {
			t.Fatalf("expected rejection for %q", tok)
		}
	}
}
