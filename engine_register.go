package flockauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flockhq/flockauth/password"
	"github.com/flockhq/flockauth/role"
)

// Register creates a new account with the default registration role and
// logs it in, returning a fresh token pair. A duplicate email reports
// [ErrEmailTaken].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.store == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, ErrInvalidCredentials
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return nil, ErrPasswordPolicy
		}
		return nil, err
	}

	user, err := e.store.Create(ctx, CreateUserInput{
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         role.DefaultRegistrationRole,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", ErrEmailTaken, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := e.issueTokens(user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, nil, nil)

	return &RegisterResult{
		User:         projectUser(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
