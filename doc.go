// Package flockauth provides the authentication and authorization engine
// for a church management backend: Argon2id password login, optional TOTP
// second factor, dual-secret JWT access/refresh tokens, single-use password
// reset, and a rank-plus-permission role model.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// flockauth is the public surface. It exposes [Engine], [Builder],
// [Config], the [UserStore] and [Notifier] integration interfaces, and
// value types. Token signing, password hashing, TOTP math, and the role
// table live in sub-packages; throttle counters and reset-token helpers
// live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, password hashes, or second-factor secrets in
//     its public API.
//   - Reveal through any returned error whether an email is registered.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
package flockauth
