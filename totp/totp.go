package totp

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Config tunes code generation and verification. Construct through New,
// which applies RFC 6238 defaults to zero fields.
type Config struct {
	Issuer string
	Digits int  // 6 or 8
	Period uint // seconds per time step
	Skew   uint // accepted steps of clock drift in each direction
}

// Engine generates shared secrets, builds otpauth:// provisioning URIs, and
// verifies time-based codes. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	config Config
}

// New returns an Engine for the given issuer. Zero digits, period, or skew
// fall back to 6 digits, 30 seconds, and one step of drift.
func New(cfg Config) (*Engine, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("totp issuer required")
	}
	if cfg.Digits == 0 {
		cfg.Digits = 6
	}
	if cfg.Digits != 6 && cfg.Digits != 8 {
		return nil, errors.New("totp digits must be 6 or 8")
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.Skew == 0 {
		cfg.Skew = 1
	}
	return &Engine{config: cfg}, nil
}

// GenerateSecret produces a fresh base32-encoded shared secret compatible
// with standard authenticator apps.
func (e *Engine) GenerateSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.config.Issuer,
		AccountName: account,
		Period:      e.config.Period,
		Digits:      e.digits(),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisioningURI constructs the otpauth:// URI an enrollment QR code is
// rendered from. Rendering itself is the caller's concern.
func (e *Engine) ProvisioningURI(account, secret string) string {
	label := url.PathEscape(e.config.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", e.config.Issuer)
	v.Set("period", strconv.FormatUint(uint64(e.config.Period), 10))
	v.Set("digits", strconv.Itoa(e.config.Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code matches secret for the current time step or
// up to Skew steps of clock drift in either direction. Malformed codes and
// empty secrets verify as false.
func (e *Engine) Verify(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    e.config.Period,
		Skew:      e.config.Skew,
		Digits:    e.digits(),
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (e *Engine) digits() otp.Digits {
	if e.config.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}
