package internaldefs

import (
	flockauth "github.com/flockhq/flockauth"
)

// CounterDef binds one engine counter to its exported metric name.
type CounterDef struct {
	ID   flockauth.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported metric name.
type HistogramDef struct {
	ID   flockauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in export order. Exporters iterate
// this slice so that Prometheus and OTel stay in sync.
var CounterDefs = []CounterDef{
	{ID: flockauth.MetricLoginSuccess, Name: "flockauth_login_success_total", Help: "Successful login attempts."},
	{ID: flockauth.MetricLoginFailure, Name: "flockauth_login_failure_total", Help: "Failed login attempts."},
	{ID: flockauth.MetricLoginRateLimited, Name: "flockauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: flockauth.MetricTwoFactorRequired, Name: "flockauth_two_factor_required_total", Help: "Logins challenged for a second factor."},
	{ID: flockauth.MetricTwoFactorSuccess, Name: "flockauth_two_factor_success_total", Help: "Successful two-factor verifications."},
	{ID: flockauth.MetricTwoFactorFailure, Name: "flockauth_two_factor_failure_total", Help: "Failed two-factor verifications."},
	{ID: flockauth.MetricRegisterSuccess, Name: "flockauth_register_success_total", Help: "Successful registrations."},
	{ID: flockauth.MetricRegisterDuplicate, Name: "flockauth_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: flockauth.MetricRefreshSuccess, Name: "flockauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: flockauth.MetricRefreshFailure, Name: "flockauth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: flockauth.MetricPasswordChangeSuccess, Name: "flockauth_password_change_success_total", Help: "Successful password changes."},
	{ID: flockauth.MetricPasswordChangeInvalidOld, Name: "flockauth_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: flockauth.MetricPasswordChangeReuseRejected, Name: "flockauth_password_change_reuse_rejected_total", Help: "Password changes rejected for reusing the current password."},
	{ID: flockauth.MetricResetRequest, Name: "flockauth_reset_request_total", Help: "Password reset requests."},
	{ID: flockauth.MetricResetConfirmSuccess, Name: "flockauth_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: flockauth.MetricResetConfirmFailure, Name: "flockauth_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: flockauth.MetricAuthenticateSuccess, Name: "flockauth_authenticate_success_total", Help: "Successful access token verifications."},
	{ID: flockauth.MetricAuthenticateFailure, Name: "flockauth_authenticate_failure_total", Help: "Failed access token verifications."},
	{ID: flockauth.MetricRateLimitHit, Name: "flockauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

// HistogramDefs lists every engine histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: flockauth.MetricAuthenticateLatency, Name: "flockauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets, in
// seconds, as Prometheus le label values.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the same bounds as metric-name-safe suffixes for
// backends without labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count. A missing histogram yields all zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms use.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
