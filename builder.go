package flockauth

import (
	"crypto/sha256"
	"errors"

	"github.com/flockhq/flockauth/internal/rate"
	"github.com/flockhq/flockauth/password"
	"github.com/flockhq/flockauth/role"
	"github.com/flockhq/flockauth/token"
	"github.com/flockhq/flockauth/totp"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roles    *role.Table
	store    UserStore
	notifier Notifier

	auditSink AuditSink

	built bool
}

// New returns a Builder pre-loaded with the default config.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's config wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the login and reset-request
// throttles. Without it the engine runs with throttling disabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore supplies the user store. Required.
func (b *Builder) WithStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithNotifier supplies the out-of-band notifier. Without it,
// ForgotPassword reports [ErrNotifierUnavailable].
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRoles supplies a frozen role table. Defaults to [role.DefaultTable].
func (b *Builder) WithRoles(t *role.Table) *Builder {
	b.roles = t
	return b
}

// WithAuditSink supplies the sink receiving audit events. Audit dispatch
// still requires Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the collaborators, and returns
// a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("user store required")
	}

	roles := b.roles
	if roles == nil {
		roles = role.DefaultTable()
	}
	if !roles.Known(role.DefaultRegistrationRole) {
		return nil, errors.New("role table is missing the default registration role")
	}

	if len(cfg.Reset.FingerprintKey) == 0 {
		// Domain-separated derivation keeps the fingerprint key out of the
		// JWT signing domain even though both come from one secret.
		derived := sha256.Sum256(append([]byte("flockauth/reset-fingerprint:"), cfg.Token.AccessSecret...))
		cfg.Reset.FingerprintKey = derived[:]
	}

	hasher, err := password.NewHasher(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	if cfg.TwoFactor.Issuer == "" {
		cfg.TwoFactor.Issuer = "flockauth"
	}
	totpEngine, err := totp.New(totp.Config{
		Issuer: cfg.TwoFactor.Issuer,
		Digits: cfg.TwoFactor.Digits,
		Period: uint(cfg.TwoFactor.Period),
		Skew:   uint(cfg.TwoFactor.Skew),
	})
	if err != nil {
		return nil, err
	}

	access, err := token.NewManager(token.Config{
		Kind:   token.KindAccess,
		Secret: cfg.Token.AccessSecret,
		TTL:    cfg.Token.AccessTTL,
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := token.NewManager(token.Config{
		Kind:   token.KindRefresh,
		Secret: cfg.Token.RefreshSecret,
		TTL:    cfg.Token.RefreshTTL,
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		roles:    roles,
		store:    b.store,
		notifier: b.notifier,
		hasher:   hasher,
		totp:     totpEngine,
		access:   access,
		refresh:  refresh,
	}

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:     cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:     cfg.Security.MaxLoginAttempts,
			LoginCooldown:        cfg.Security.LoginCooldown,
			MaxResetRequests:     cfg.Security.MaxResetRequests,
			ResetRequestCooldown: cfg.Security.ResetRequestCooldown,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
