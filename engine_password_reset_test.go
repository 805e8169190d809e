package flockauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, testConfig(), store, notifier)

	if err := engine.ForgotPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if len(notifier.tokens) != 0 {
		t.Fatal("no mail may be sent for an unknown email")
	}
}

func TestResetPasswordRoundTrip(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, testConfig(), store, notifier)
	u := seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	raw := notifier.lastToken(t)

	// Only the fingerprint is persisted, never the raw token.
	if stored := store.users[u.ID].ResetFingerprint; stored == "" || stored == raw {
		t.Fatalf("expected a stored fingerprint distinct from the raw token, got %q", stored)
	}

	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@example.com", "old password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "brand new password"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestResetPasswordTokenIsSingleUse(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, testConfig(), store, notifier)
	seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	raw := notifier.lastToken(t)

	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); err != nil {
		t.Fatalf("first ResetPassword failed: %v", err)
	}
	if err := engine.ResetPassword(context.Background(), raw, "yet another password", "yet another password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	cfg := testConfig()
	engine := newTestEngine(t, cfg, store, notifier)
	u := seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	raw := notifier.lastToken(t)

	// Force the window closed.
	store.mu.Lock()
	rec := store.users[u.ID]
	rec.ResetExpiresAt = time.Now().Add(-time.Minute)
	store.users[u.ID] = rec
	store.mu.Unlock()

	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
	// Expiry consumed the fingerprint; a retry is now just invalid.
	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid after expiry cleanup, got %v", err)
	}
}

func TestResetPasswordRejectsGarbageTokens(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, &recordingNotifier{})

	for _, tok := range []string{"", "not base64 ###", "c2hvcnQ"} {
		if err := engine.ResetPassword(context.Background(), tok, "brand new password", "brand new password"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("token %q: expected ErrResetTokenInvalid, got %v", tok, err)
		}
	}
}

func TestForgotPasswordNewTokenInvalidatesOld(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, testConfig(), store, notifier)
	seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first ForgotPassword failed: %v", err)
	}
	first := notifier.lastToken(t)
	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("second ForgotPassword failed: %v", err)
	}
	second := notifier.lastToken(t)

	if err := engine.ResetPassword(context.Background(), first, "brand new password", "brand new password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected the older token to be dead, got %v", err)
	}
	if err := engine.ResetPassword(context.Background(), second, "brand new password", "brand new password"); err != nil {
		t.Fatalf("newest token must work: %v", err)
	}
}

func TestResetPasswordConfirmMismatch(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, testConfig(), store, notifier)
	seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	raw := notifier.lastToken(t)

	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "different confirm"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	// The mismatch must not have consumed the token.
	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); err != nil {
		t.Fatalf("token must survive a confirm mismatch: %v", err)
	}
}

func TestForgotPasswordDeliveryFailureIsSilent(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{fail: true}
	engine := newTestEngine(t, testConfig(), store, notifier)
	u := seedUser(t, engine, store, "alice@example.com", "old password")

	// The caller must see the same nil it sees for an unknown email.
	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("delivery failure must not fail the request, got %v", err)
	}
	if len(notifier.tokens) != 0 {
		t.Fatal("failed delivery must not record a token")
	}
	if store.users[u.ID].ResetFingerprint == "" {
		t.Fatal("fingerprint must persist even when delivery fails")
	}

	// Once delivery recovers, a fresh request completes the flow.
	notifier.fail = false
	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword after recovery failed: %v", err)
	}
	raw := notifier.lastToken(t)
	if err := engine.ResetPassword(context.Background(), raw, "brand new password", "brand new password"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
}

func TestForgotPasswordWithoutNotifier(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "old password")

	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); !errors.Is(err, ErrNotifierUnavailable) {
		t.Fatalf("expected ErrNotifierUnavailable, got %v", err)
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	cfg := testConfig()
	cfg.Security.MaxResetRequests = 2
	engine, _ := newThrottledEngine(t, cfg, store, notifier)
	seedUser(t, engine, store, "alice@example.com", "old password")

	for i := 0; i < 2; i++ {
		if err := engine.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if err := engine.ForgotPassword(context.Background(), "alice@example.com"); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected ErrResetRateLimited, got %v", err)
	}
	// Unknown emails are throttled identically.
	for i := 0; i < 2; i++ {
		if err := engine.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
			t.Fatalf("unknown request %d failed: %v", i, err)
		}
	}
	if err := engine.ForgotPassword(context.Background(), "ghost@example.com"); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected ErrResetRateLimited for unknown email, got %v", err)
	}
}
