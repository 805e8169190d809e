package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two token families. Access and refresh tokens are
// signed with independent secrets, so a Manager of one kind can never verify
// a token of the other even if the kind claim were forged.
type Kind string

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess Kind = "access"
	// KindRefresh is the longer-lived credential used to mint new access tokens.
	KindRefresh Kind = "refresh"
)

var (
	// ErrTokenExpired reports a structurally valid, correctly signed token
	// whose validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed reports a token that failed structural or signature
	// checks. Callers surface both sentinels as one generic authorization
	// failure but log them apart.
	ErrTokenMalformed = errors.New("token malformed")
)

// Config configures a Manager for a single token kind.
type Config struct {
	Kind   Kind
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Claims is the decoded content of a bearer token: subject (user id), email,
// role, and the registered time claims. It has no lifecycle beyond the
// token's validity window.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"knd"`
	jwt.RegisteredClaims
}

// Manager issues and verifies signed HS256 tokens of exactly one Kind.
// Instances are immutable and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Kind != KindAccess && cfg.Kind != KindRefresh {
		return nil, errors.New("token kind must be access or refresh")
	}
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 256 bits")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be > 0")
	}
	return &Manager{config: cfg}, nil
}

// TTL returns the configured validity window.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue creates a signed token carrying the user's id, email, and role with
// expiry = now + TTL.
func (m *Manager) Issue(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		Kind:  string(m.config.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.Secret)
}

// Verify checks signature, expiry, and kind, returning the decoded claims.
// Failures map onto exactly two sentinels: ErrTokenExpired for an otherwise
// valid token past its window, ErrTokenMalformed for everything else.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Kind != string(m.config.Kind) {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
