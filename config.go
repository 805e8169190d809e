package flockauth

import (
	"errors"
	"os"
	"time"

	"github.com/flockhq/flockauth/password"
	"github.com/flockhq/flockauth/role"
)

// Config defines the engine's tunable behavior. Configure once before
// Build and treat as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	TwoFactor TwoFactorConfig
	Reset     ResetConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TokenConfig holds the dual-secret JWT parameters. Access and refresh
// tokens are signed with independent secrets so neither can forge the
// other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// PasswordConfig holds the Argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	// UpgradeOnLogin rehashes a verified password at login when the stored
	// digest uses weaker parameters than the current config.
	UpgradeOnLogin bool
}

// TwoFactorConfig holds the TOTP parameters.
type TwoFactorConfig struct {
	Issuer string
	Digits int
	Period int
	Skew   int
	// RequireCodeForDisable demands a valid current code before turning
	// two-factor off. A stolen session alone then cannot weaken the account.
	RequireCodeForDisable bool
}

// ResetConfig holds the password-reset parameters. FingerprintKey keys the
// HMAC that turns raw reset tokens into store lookup fingerprints; when
// empty, Build derives one from the access secret.
type ResetConfig struct {
	TTL            time.Duration
	FingerprintKey []byte
}

// SecurityConfig holds the Redis throttle parameters. Throttles engage
// only when the builder is given a Redis client.
type SecurityConfig struct {
	EnableIPThrottle     bool
	MaxLoginAttempts     int
	LoginCooldown        time.Duration
	MaxResetRequests     int
	ResetRequestCooldown time.Duration
}

// AuditConfig holds async audit dispatch parameters.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig holds in-process metrics parameters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		TwoFactor: TwoFactorConfig{
			Digits:                6,
			Period:                30,
			Skew:                  1,
			RequireCodeForDisable: true,
		},
		Reset: ResetConfig{
			TTL: time.Hour,
		},
		Security: SecurityConfig{
			EnableIPThrottle:     true,
			MaxLoginAttempts:     5,
			LoginCooldown:        15 * time.Minute,
			MaxResetRequests:     3,
			ResetRequestCooldown: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.AccessSecret = cloneBytes(cfg.Token.AccessSecret)
	out.Token.RefreshSecret = cloneBytes(cfg.Token.RefreshSecret)
	out.Reset.FingerprintKey = cloneBytes(cfg.Reset.FingerprintKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the config for internally inconsistent or insecure
// values. Build calls it; callers may call it earlier for fail-fast setup.
func (c *Config) Validate() error {
	if len(c.Token.AccessSecret) < 32 {
		return errors.New("Token AccessSecret must be >= 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("Token RefreshSecret must be >= 32 bytes")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("Token AccessSecret and RefreshSecret must differ")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("Token RefreshTTL must be > 0")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("Token RefreshTTL must be >= AccessTTL")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	if c.TwoFactor.Digits != 6 && c.TwoFactor.Digits != 8 {
		return errors.New("TwoFactor Digits must be 6 or 8")
	}
	if c.TwoFactor.Period <= 0 {
		return errors.New("TwoFactor Period must be > 0")
	}
	if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 2 {
		return errors.New("TwoFactor Skew must be between 0 and 2")
	}

	if c.Reset.TTL <= 0 {
		return errors.New("Reset TTL must be > 0")
	}
	if c.Reset.TTL > 24*time.Hour {
		return errors.New("Reset TTL must be <= 24h")
	}

	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldown <= 0 {
		return errors.New("Security LoginCooldown must be > 0")
	}
	if c.Security.MaxResetRequests <= 0 {
		return errors.New("Security MaxResetRequests must be > 0")
	}
	if c.Security.ResetRequestCooldown <= 0 {
		return errors.New("Security ResetRequestCooldown must be > 0")
	}

	return nil
}

// ConfigFromEnv builds a Config from the process environment on top of the
// defaults. Recognized variables:
//
//	FLOCKAUTH_ACCESS_SECRET   access token signing secret (required)
//	FLOCKAUTH_REFRESH_SECRET  refresh token signing secret (required)
//	FLOCKAUTH_ACCESS_TTL      access token lifetime (Go duration, default 24h)
//	FLOCKAUTH_REFRESH_TTL     refresh token lifetime (Go duration, default 168h)
//	FLOCKAUTH_APP_NAME        token issuer and TOTP provisioning issuer
//
// The returned config still goes through Validate at Build time.
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	access := os.Getenv("FLOCKAUTH_ACCESS_SECRET")
	if access == "" {
		return Config{}, errors.New("FLOCKAUTH_ACCESS_SECRET not set")
	}
	refresh := os.Getenv("FLOCKAUTH_REFRESH_SECRET")
	if refresh == "" {
		return Config{}, errors.New("FLOCKAUTH_REFRESH_SECRET not set")
	}
	cfg.Token.AccessSecret = []byte(access)
	cfg.Token.RefreshSecret = []byte(refresh)

	if v := os.Getenv("FLOCKAUTH_ACCESS_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.New("FLOCKAUTH_ACCESS_TTL is not a valid duration")
		}
		cfg.Token.AccessTTL = ttl
	}
	if v := os.Getenv("FLOCKAUTH_REFRESH_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.New("FLOCKAUTH_REFRESH_TTL is not a valid duration")
		}
		cfg.Token.RefreshTTL = ttl
	}
	if v := os.Getenv("FLOCKAUTH_APP_NAME"); v != "" {
		cfg.Token.Issuer = v
		cfg.TwoFactor.Issuer = v
	}

	return cfg, nil
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
		MinLength:   c.Password.MinLength,
	}
}

// DefaultRegistrationRole is re-exported for callers wiring their own role
// tables.
const DefaultRegistrationRole = role.DefaultRegistrationRole
