package flockauth

import "errors"

var (
	// ErrUnauthorized reports a request that failed authentication or
	// authorization at the guard boundary.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is the single login failure surfaced for a bad
	// email, a bad password, or a missing account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound reports a lookup miss in the user store.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken reports a registration against an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrLoginRateLimited reports that the login throttle budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrResetRateLimited reports that the reset-request throttle budget is spent.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrPasswordPolicy reports a new password that fails the minimum policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse reports a password change to the current password.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrPasswordMismatch reports a wrong current password on change, or a
	// new password that does not match its confirmation on reset.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrResetTokenInvalid reports an unknown or already-consumed reset token.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired reports a reset token past its window.
	ErrResetTokenExpired = errors.New("password reset token expired")
	// ErrTwoFactorRequired reports that login needs a second-factor code.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrTwoFactorInvalid reports a wrong second-factor code.
	ErrTwoFactorInvalid = errors.New("invalid two-factor code")
	// ErrTwoFactorNotConfigured reports a 2FA operation without a pending or
	// enabled secret.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorAlreadyEnabled reports enrollment on an enabled account.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTokenInvalid reports a malformed, tampered, or wrong-kind token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired reports a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrStoreUnavailable wraps user-store transport failures.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrNotifierUnavailable wraps notification delivery failures.
	ErrNotifierUnavailable = errors.New("notifier unavailable")
	// ErrEngineNotReady reports use of an engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PublicMessage maps an engine error onto the message safe to show an end
// user. Account-enumeration-sensitive failures collapse onto one generic
// string; the audit trail keeps the specific reason.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return "invalid email or password"
	case errors.Is(err, ErrResetTokenInvalid), errors.Is(err, ErrResetTokenExpired):
		return "this reset link is invalid or has expired"
	case errors.Is(err, ErrTwoFactorRequired):
		return "two-factor code required"
	case errors.Is(err, ErrTwoFactorInvalid):
		return "invalid two-factor code"
	case errors.Is(err, ErrEmailTaken):
		return "email already registered"
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrResetRateLimited):
		return "too many attempts, try again later"
	case errors.Is(err, ErrPasswordPolicy):
		return "password does not meet the minimum requirements"
	case errors.Is(err, ErrPasswordReuse):
		return "new password must be different from current password"
	case errors.Is(err, ErrPasswordMismatch):
		return "password mismatch"
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "something went wrong"
	}
}
