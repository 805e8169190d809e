package flockauth

import (
	"context"
	"errors"
	"fmt"
)

// GenerateTwoFactor provisions a fresh TOTP secret for the user and stores
// it in the pending state: present but not enabled. Login is unaffected
// until [Engine.EnableTwoFactor] confirms a live code. Calling this again
// before confirmation replaces the pending secret.
func (e *Engine) GenerateTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if e == nil || e.store == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := e.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, err
	}

	if err := e.store.SetTwoFactorSecret(ctx, user.ID, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventTwoFactorSetup, true, user.ID, nil, nil)

	return &TwoFactorSetup{
		SecretBase32:    secret,
		ProvisioningURI: e.totp.ProvisioningURI(user.Email, secret),
	}, nil
}

// EnableTwoFactor confirms a pending enrollment by verifying a live code
// against the stored secret. Only then does two-factor start gating login.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID, code string) error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	user, err := e.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if user.TwoFactorSecret == "" {
		return ErrTwoFactorNotConfigured
	}

	if !e.totp.Verify(code, user.TwoFactorSecret) {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, ErrTwoFactorInvalid, func() map[string]string {
			return map[string]string{
				"stage": "enable",
			}
		})
		return ErrTwoFactorInvalid
	}

	if err := e.store.EnableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, user.ID, nil, nil)

	return nil
}

// DisableTwoFactor turns two-factor off and discards the secret. With
// Config.TwoFactor.RequireCodeForDisable set (the default) a valid current
// code is demanded, so a hijacked session cannot silently weaken the
// account.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID, code string) error {
	if e == nil || e.store == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	user, err := e.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotConfigured
	}

	if e.config.TwoFactor.RequireCodeForDisable {
		if !e.totp.Verify(code, user.TwoFactorSecret) {
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, ErrTwoFactorInvalid, func() map[string]string {
				return map[string]string{
					"stage": "disable",
				}
			})
			return ErrTwoFactorInvalid
		}
	}

	if err := e.store.DisableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, user.ID, nil, nil)

	return nil
}

func (e *Engine) getUser(ctx context.Context, userID string) (UserRecord, error) {
	user, err := e.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}
