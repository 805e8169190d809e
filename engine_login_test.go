package flockauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestLoginSuccess(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.TwoFactorRequired {
		t.Fatal("did not expect a two-factor challenge")
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if res.AccessToken == res.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if res.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user projection: %+v", res.User)
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if _, err := engine.Login(context.Background(), "  Alice@Example.COM ", "correct horse battery"); err != nil {
		t.Fatalf("Login with unnormalized email failed: %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	_, badPass := engine.Login(context.Background(), "alice@example.com", "wrong password")
	_, noUser := engine.Login(context.Background(), "nobody@example.com", "wrong password")
	_, emptyPass := engine.Login(context.Background(), "alice@example.com", "")

	for _, err := range []error{badPass, noUser, emptyPass} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if PublicMessage(badPass) != PublicMessage(noUser) {
		t.Fatal("wrong-password and unknown-email must share one public message")
	}
}

func TestLoginTwoFactorChallenge(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	setup, err := engine.GenerateTwoFactor(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactor failed: %v", err)
	}
	code, err := totp.GenerateCode(setup.SecretBase32, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	if err := engine.EnableTwoFactor(context.Background(), u.ID, code); err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.TwoFactorRequired {
		t.Fatal("expected a two-factor challenge")
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("challenge state must not carry tokens")
	}

	code, err = totp.GenerateCode(setup.SecretBase32, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	res, err = engine.LoginWithTwoFactor(context.Background(), "alice@example.com", "correct horse battery", code)
	if err != nil {
		t.Fatalf("LoginWithTwoFactor failed: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected tokens after the second factor")
	}
}

func TestLoginWithTwoFactorRejectsBadCode(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	setup, err := engine.GenerateTwoFactor(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactor failed: %v", err)
	}
	code, err := totp.GenerateCode(setup.SecretBase32, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	if err := engine.EnableTwoFactor(context.Background(), u.ID, code); err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}

	if _, err := engine.LoginWithTwoFactor(context.Background(), "alice@example.com", "correct horse battery", "000000"); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid, got %v", err)
	}
	if _, err := engine.LoginWithTwoFactor(context.Background(), "alice@example.com", "correct horse battery", ""); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid for empty code, got %v", err)
	}
}

func TestLoginPendingSecretDoesNotGate(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	// Provisioned but never confirmed.
	if _, err := engine.GenerateTwoFactor(context.Background(), u.ID); err != nil {
		t.Fatalf("GenerateTwoFactor failed: %v", err)
	}

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.TwoFactorRequired {
		t.Fatal("pending enrollment must not gate login")
	}
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	engine := newTestEngine(t, cfg, store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")
	oldHash := store.users[u.ID].PasswordHash

	// Rebuild with stronger parameters; the stored digest now needs an
	// upgrade.
	strong := testConfig()
	strong.Password.Memory = 16 * 1024
	upgraded := newTestEngine(t, strong, store, nil)

	if _, err := upgraded.Login(context.Background(), "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	newHash := store.users[u.ID].PasswordHash
	if newHash == oldHash {
		t.Fatal("expected stored hash to be rehashed on login")
	}
	if !upgraded.hasher.Verify("correct horse battery", newHash) {
		t.Fatal("upgraded hash must still verify")
	}
}

func TestLoginRateLimited(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.LoginCooldown = time.Minute
	engine, _ := newThrottledEngine(t, cfg, store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	// The right password is also locked out during the cooldown.
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited for correct password too, got %v", err)
	}
}

func TestLoginSuccessClearsThrottle(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine, _ := newThrottledEngine(t, cfg, store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Counter was reset; the full budget is available again.
	for i := 0; i < 3; i++ {
		if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	pair, err := engine.Refresh(context.Background(), res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Tokens are kind-bound; an access token cannot refresh.
	if _, err := engine.Refresh(context.Background(), res.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	id, err := engine.Authenticate(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if id.UserID != u.ID || id.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.Role != DefaultRegistrationRole {
		t.Fatalf("expected default registration role, got %s", id.Role)
	}
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	store.mu.Lock()
	delete(store.users, u.ID)
	delete(store.byEmail, u.Email)
	store.mu.Unlock()

	if _, err := engine.Authenticate(context.Background(), res.AccessToken); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	if _, err := engine.Authenticate(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if err := engine.ChangePassword(context.Background(), u.ID, "wrong", "a new password"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := engine.ChangePassword(context.Background(), u.ID, "correct horse battery", "correct horse battery"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}
	if err := engine.ChangePassword(context.Background(), u.ID, "correct horse battery", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := engine.ChangePassword(context.Background(), u.ID, "correct horse battery", "a new password"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "a new password"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestLoginEmitsAuditEvents(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16

	sink := NewChannelSink(16)
	b := New().WithConfig(cfg).WithStore(store).WithAuditSink(sink)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if _, err := engine.Login(WithClientIP(context.Background(), "10.0.0.9"), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	engine.Close()

	select {
	case ev := <-sink.Events():
		if ev.EventType != auditEventLoginFailure {
			t.Fatalf("expected %s, got %s", auditEventLoginFailure, ev.EventType)
		}
		if ev.Error != string(auditErrInvalidCredentials) {
			t.Fatalf("unexpected error code: %s", ev.Error)
		}
		if ev.IP != "10.0.0.9" {
			t.Fatalf("expected client IP in event, got %q", ev.IP)
		}
		if ev.Metadata["reason"] != "password_mismatch" {
			t.Fatalf("expected specific reason in metadata, got %q", ev.Metadata["reason"])
		}
	default:
		t.Fatal("expected a buffered audit event")
	}
}

func TestMetricsCountLogins(t *testing.T) {
	store := newMemStore()
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	engine := newTestEngine(t, cfg, store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if _, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected 1 login success, got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("expected 1 login failure, got %d", snap.Counters[MetricLoginFailure])
	}
}

func TestLoginStampsLastLogin(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	u := seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	if !store.users[u.ID].LastLoginAt.IsZero() {
		t.Fatal("expected zero last-login before the first login")
	}
	if _, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if store.users[u.ID].LastLoginAt.IsZero() {
		t.Fatal("expected a last-login stamp after a successful login")
	}
}

func TestCurrentUser(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "alice@example.com", "correct horse battery")

	res, err := engine.Login(context.Background(), "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	user, err := engine.CurrentUser(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.Email != "alice@example.com" || user.Name != "Test User" {
		t.Fatalf("unexpected projection %+v", user)
	}
	if user.Role != DefaultRegistrationRole {
		t.Fatalf("unexpected role %q", user.Role)
	}

	if _, err := engine.CurrentUser(context.Background(), "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
