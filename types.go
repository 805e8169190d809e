package flockauth

import (
	"context"
	"time"

	"github.com/flockhq/flockauth/role"
)

// UserRecord is the full account record exchanged with a [UserStore].
// A non-empty TwoFactorSecret with TwoFactorEnabled false is a pending
// enrollment: provisioned but never confirmed, and not yet enforced at
// login.
type UserRecord struct {
	ID               string
	Email            string
	Name             string
	Phone            string
	PasswordHash     string
	Role             role.Role
	TwoFactorSecret  string
	TwoFactorEnabled bool
	ResetFingerprint string
	ResetExpiresAt   time.Time
	LastLoginAt      time.Time
	CreatedAt        time.Time
}

// CreateUserInput is the input for [UserStore.Create].
type CreateUserInput struct {
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Role         role.Role
}

// UserStore is the interface callers implement to connect the engine to
// their user database. Lookup misses return [ErrUserNotFound]; Create on a
// duplicate email returns [ErrEmailTaken]. Any other error is treated as a
// backend failure.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (UserRecord, error)
	GetByID(ctx context.Context, userID string) (UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// TouchLastLogin stamps a successful login. The engine calls it
	// best-effort; a failure never blocks the login itself.
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	SetTwoFactorSecret(ctx context.Context, userID, secret string) error
	EnableTwoFactor(ctx context.Context, userID string) error
	DisableTwoFactor(ctx context.Context, userID string) error

	// GetByResetFingerprint resolves the account holding the given reset
	// fingerprint, regardless of expiry; the engine checks the window.
	GetByResetFingerprint(ctx context.Context, fingerprint string) (UserRecord, error)
	SetResetFingerprint(ctx context.Context, userID, fingerprint string, expiresAt time.Time) error
	ClearResetFingerprint(ctx context.Context, userID string) error
}

// Notifier delivers out-of-band messages to account holders. The raw reset
// token passes through here exactly once and is never persisted.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, rawToken string) error
}

// UserProjection is the client-safe view of an account. It never carries
// hashes or second-factor secrets.
type UserProjection struct {
	ID               string
	Email            string
	Name             string
	Phone            string
	Role             role.Role
	TwoFactorEnabled bool
}

func projectUser(u UserRecord) UserProjection {
	return UserProjection{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

// TokenPair carries one access and one refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by [Engine.Login]. When TwoFactorRequired is set
// the tokens are empty and the caller must retry with a code.
type LoginResult struct {
	AccessToken  string
	RefreshToken string

	TwoFactorRequired bool

	User UserProjection
}

// RegisterRequest is the input for [Engine.Register]. Phone is optional.
type RegisterRequest struct {
	Email    string
	Name     string
	Phone    string
	Password string
}

// RegisterResult is returned by [Engine.Register]. Registration logs the
// new account in, so a fresh token pair is included.
type RegisterResult struct {
	User         UserProjection
	AccessToken  string
	RefreshToken string
}

// TwoFactorSetup holds the base32 secret and otpauth:// URI returned by
// [Engine.GenerateTwoFactor] for QR rendering. Enrollment stays pending
// until [Engine.EnableTwoFactor] confirms a live code.
type TwoFactorSetup struct {
	SecretBase32    string
	ProvisioningURI string
}

// Identity is the verified caller attached to a guarded request: claims
// from the access token cross-checked against the live user record.
type Identity struct {
	UserID           string
	Email            string
	Role             role.Role
	TwoFactorEnabled bool
}
