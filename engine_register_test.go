package flockauth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterSuccess(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	res, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "Bob@Example.com",
		Name:     "Bob",
		Password: "a long password",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.User.ID == "" {
		t.Fatal("expected a user id")
	}
	if res.User.Email != "bob@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.Role != DefaultRegistrationRole {
		t.Fatalf("expected default registration role, got %s", res.User.Role)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("registration must log the user in")
	}

	stored := store.users[res.User.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "a long password" {
		t.Fatal("expected stored password to be hashed")
	}
	if !engine.hasher.Verify("a long password", stored.PasswordHash) {
		t.Fatal("stored hash must verify")
	}
}

func TestRegisterPhoneIsOptional(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	res, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Name:     "Bob",
		Phone:    " +1 555 0100 ",
		Password: "a long password",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.User.Phone != "+1 555 0100" {
		t.Fatalf("expected trimmed phone on the projection, got %q", res.User.Phone)
	}
	if store.users[res.User.ID].Phone != "+1 555 0100" {
		t.Fatal("expected phone on the stored record")
	}

	res, err = engine.Register(context.Background(), RegisterRequest{
		Email:    "carol@example.com",
		Name:     "Carol",
		Password: "a long password",
	})
	if err != nil {
		t.Fatalf("Register without phone failed: %v", err)
	}
	if res.User.Phone != "" {
		t.Fatalf("expected empty phone, got %q", res.User.Phone)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)
	seedUser(t, engine, store, "bob@example.com", "a long password")

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Name:     "Bob Again",
		Password: "another password",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Name:     "Bob",
		Password: "short",
	})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if len(store.users) != 0 {
		t.Fatal("no account may be created on policy failure")
	}
}

func TestRegisterRejectsMalformedInput(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	cases := []RegisterRequest{
		{Email: "", Name: "Bob", Password: "a long password"},
		{Email: "not-an-email", Name: "Bob", Password: "a long password"},
		{Email: "bob@", Name: "Bob", Password: "a long password"},
		{Email: "bob@example.com", Name: "   ", Password: "a long password"},
	}
	for _, req := range cases {
		if _, err := engine.Register(context.Background(), req); err == nil {
			t.Fatalf("expected rejection for %+v", req)
		}
	}
	if len(store.users) != 0 {
		t.Fatal("no account may be created for malformed input")
	}
}

func TestRegisterTokensAreLive(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, testConfig(), store, nil)

	res, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "bob@example.com",
		Name:     "Bob",
		Password: "a long password",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	id, err := engine.Authenticate(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate with registration token failed: %v", err)
	}
	if id.UserID != res.User.ID {
		t.Fatalf("token subject mismatch: %s vs %s", id.UserID, res.User.ID)
	}
}
