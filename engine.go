package flockauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/flockhq/flockauth/internal/rate"
	"github.com/flockhq/flockauth/password"
	"github.com/flockhq/flockauth/role"
	"github.com/flockhq/flockauth/token"
	"github.com/flockhq/flockauth/totp"
)

// Engine orchestrates every authentication and authorization operation.
// Build one through [Builder]; a zero-value Engine is not usable.
type Engine struct {
	config   Config
	roles    *role.Table
	store    UserStore
	notifier Notifier
	hasher   *password.Hasher
	totp     *totp.Engine
	access   *token.Manager
	refresh  *token.Manager
	limiter  *rate.Limiter
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Roles returns the engine's role table.
func (e *Engine) Roles() *role.Table {
	if e == nil {
		return nil
	}
	return e.roles
}

// AuditDropped returns how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies an email+password pair. When the account has two-factor
// enabled the result carries TwoFactorRequired and no tokens; the caller
// retries with [Engine.LoginWithTwoFactor]. Bad email, bad password, and
// missing account all surface as [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	return e.loginInternal(ctx, email, pass, "")
}

// LoginWithTwoFactor completes a login that requires a second factor. The
// password is re-verified together with the code; the intermediate state
// carries no server-side session.
func (e *Engine) LoginWithTwoFactor(ctx context.Context, email, pass, code string) (*LoginResult, error) {
	if code == "" {
		return nil, ErrTwoFactorInvalid
	}
	return e.loginInternal(ctx, email, pass, code)
}

func (e *Engine) loginInternal(ctx context.Context, email, pass, code string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
			return nil, e.failLoginRateLimited(ctx, email, "")
		}
	}

	if pass == "" {
		return nil, e.failLogin(ctx, email, "", "empty_password")
	}

	user, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.failLogin(ctx, email, "", "user_not_found")
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !e.hasher.Verify(pass, user.PasswordHash) {
		return nil, e.failLogin(ctx, email, user.ID, "password_mismatch")
	}

	// A pending secret (provisioned but never confirmed) does not gate
	// login; only a confirmed enrollment does.
	if user.TwoFactorEnabled {
		if code == "" {
			e.metricInc(MetricTwoFactorRequired)
			e.emitAudit(ctx, auditEventLoginTwoFactorRequired, true, user.ID, nil, nil)
			return &LoginResult{TwoFactorRequired: true}, nil
		}
		if !e.totp.Verify(code, user.TwoFactorSecret) {
			e.metricInc(MetricTwoFactorFailure)
			if e.limiter != nil {
				if err := e.limiter.IncrementLogin(ctx, email, ip); err != nil {
					return nil, e.failLoginRateLimited(ctx, email, user.ID)
				}
			}
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, ErrTwoFactorInvalid, nil)
			return nil, ErrTwoFactorInvalid
		}
		e.metricInc(MetricTwoFactorSuccess)
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.hasher.Hash(pass); err == nil {
				// Rehash update is best-effort and must not block login.
				if err := e.store.UpdatePasswordHash(ctx, user.ID, upgradedHash); err != nil {
					log.Print("flockauth: password hash upgrade update failed")
				}
			} else {
				log.Print("flockauth: password hash upgrade generation failed")
			}
		}
	}
	pass = ""

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
			log.Print("flockauth: login counter reset failed")
		}
	}

	if err := e.store.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		log.Print("flockauth: last-login stamp failed")
	}

	pair, err := e.issueTokens(user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         projectUser(user),
	}, nil
}

func (e *Engine) failLogin(ctx context.Context, email, userID, reason string) error {
	if e.limiter != nil {
		if err := e.limiter.IncrementLogin(ctx, email, clientIPFromContext(ctx)); err != nil {
			return e.failLoginRateLimited(ctx, email, userID)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"email":  email,
			"reason": reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) failLoginRateLimited(ctx context.Context, email, userID string) error {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, ErrLoginRateLimited, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})
	e.emitRateLimit(ctx, "login", func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})
	return ErrLoginRateLimited
}

func (e *Engine) issueTokens(user UserRecord) (TokenPair, error) {
	accessToken, err := e.access.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := e.refresh.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Authenticate verifies an access token and re-checks the account against
// the live store: a valid token for a deleted user is rejected. The
// returned identity carries the user's current role, not the role frozen
// into the token.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	claims, err := e.access.Verify(accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		mapped := mapTokenError(err)
		e.emitAudit(ctx, auditEventAuthenticateDenied, false, "", mapped, nil)
		return nil, mapped
	}

	user, err := e.store.GetByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventAuthenticateDenied, false, claims.Subject, ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAuthenticateSuccess)

	return &Identity{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
	}, nil
}

// CurrentUser resolves an access token to the client-safe projection of
// its account, including profile fields [Identity] leaves out.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (*UserProjection, error) {
	identity, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := e.store.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	p := projectUser(user)
	return &p, nil
}

// Refresh exchanges a valid refresh token for a fresh access+refresh pair.
// The account is re-checked so a deleted user cannot keep refreshing.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.store == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.refresh.Verify(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		mapped := mapTokenError(err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", mapped, nil)
		return TokenPair{}, mapped
	}

	user, err := e.store.GetByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, ErrUserNotFound, nil)
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := e.issueTokens(user)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, nil, nil)

	return pair, nil
}

// ChangePassword rotates the password of an authenticated user after
// verifying the current one. The new password must differ from the old.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	user, err := e.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !e.hasher.Verify(currentPassword, user.PasswordHash) {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalid, false, user.ID, ErrPasswordMismatch, nil)
		return ErrPasswordMismatch
	}

	if newPassword == currentPassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, user.ID, ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return ErrPasswordPolicy
		}
		return err
	}

	if err := e.store.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, user.Email, clientIPFromContext(ctx)); err != nil {
			log.Print("flockauth: login counter reset failed")
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, nil, nil)

	return nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
