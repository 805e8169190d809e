package flockauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/flockhq/flockauth/internal"
	"github.com/flockhq/flockauth/password"
)

// ForgotPassword starts the reset flow for an email. It returns nil for
// unknown accounts as well, so the response cannot be used to probe which
// emails are registered; the audit trail records the real outcome. The raw
// token goes to the notifier once and only its HMAC fingerprint is stored.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if e.notifier == nil {
		return ErrNotifierUnavailable
	}

	email = normalizeEmail(email)

	if e.limiter != nil {
		// Counted for unknown emails too, so throttle behavior is uniform.
		if err := e.limiter.IncrementResetRequest(ctx, email); err != nil {
			e.emitRateLimit(ctx, "password_reset", func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return ErrResetRateLimited
		}
	}

	user, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventResetRequest, false, "", ErrUserNotFound, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rawToken, err := internal.NewResetToken()
	if err != nil {
		return err
	}
	fingerprint := internal.FingerprintResetToken(e.config.Reset.FingerprintKey, rawToken)
	expiresAt := time.Now().Add(e.config.Reset.TTL)

	// A second request overwrites the first; only the newest token works.
	if err := e.store.SetResetFingerprint(ctx, user.ID, fingerprint, expiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Delivery is fire-and-forget. Failing here would make the response
	// non-uniform, since only registered emails reach the notifier.
	if err := e.notifier.SendPasswordReset(ctx, user.Email, rawToken); err != nil {
		log.Print("flockauth: reset notification delivery failed")
		e.emitAudit(ctx, auditEventResetRequest, false, user.ID, ErrNotifierUnavailable, nil)
		return nil
	}

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, user.ID, nil, nil)

	return nil
}

// ResetPassword consumes a reset token and sets a new password. Tokens are
// single-use: success clears the stored fingerprint, and an expired token
// is cleared as well.
func (e *Engine) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	if err := internal.ValidateResetTokenShape(rawToken); err != nil {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrResetTokenInvalid, nil)
		return ErrResetTokenInvalid
	}

	fingerprint := internal.FingerprintResetToken(e.config.Reset.FingerprintKey, rawToken)

	user, err := e.store.GetByResetFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricResetConfirmFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", ErrResetTokenInvalid, nil)
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if time.Now().After(user.ResetExpiresAt) {
		if err := e.store.ClearResetFingerprint(ctx, user.ID); err != nil {
			log.Print("flockauth: expired reset fingerprint clear failed")
		}
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, user.ID, ErrResetTokenExpired, nil)
		return ErrResetTokenExpired
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
	if err := e.store.ClearResetFingerprint(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, user.Email, clientIPFromContext(ctx)); err != nil {
			log.Print("flockauth: login counter reset failed")
		}
	}

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.ID, nil, nil)

	return nil
}
