package flockauth

import "time"

// SecurityReport summarizes the engine's effective security posture. It is
// meant for startup logs and admin diagnostics; it never contains secrets.
type SecurityReport struct {
	SigningAlgorithm string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Argon2           PasswordConfigReport

	TwoFactorDigits       int
	TwoFactorPeriod       int
	HardenedDisableActive bool

	ResetTTL           time.Duration
	RateLimitingActive bool
	IPThrottleActive   bool
	AuditActive        bool
	MetricsActive      bool
}

// PasswordConfigReport echoes the Argon2id cost parameters in effect.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// SecurityReport returns the current posture. Safe on a nil engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.limiter != nil &&
		e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldown > 0

	return SecurityReport{
		SigningAlgorithm: "HS256",
		AccessTTL:        e.config.Token.AccessTTL,
		RefreshTTL:       e.config.Token.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
			MinLength:   e.config.Password.MinLength,
		},
		TwoFactorDigits:       e.config.TwoFactor.Digits,
		TwoFactorPeriod:       e.config.TwoFactor.Period,
		HardenedDisableActive: e.config.TwoFactor.RequireCodeForDisable,
		ResetTTL:              e.config.Reset.TTL,
		RateLimitingActive:    rateLimiting,
		IPThrottleActive:      rateLimiting && e.config.Security.EnableIPThrottle,
		AuditActive:           e.config.Audit.Enabled,
		MetricsActive:         e.config.Metrics.Enabled,
	}
}
