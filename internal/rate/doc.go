// Package rate provides Redis-backed fixed-window counters throttling
// login attempts and password-reset requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - fl:  login per-email
//   - fli: login per-IP
//   - fr:  reset requests per-email
//
// # What this package must NOT do
//
//   - Decide which operations are throttled (the engine does).
//   - Be imported outside the flockauth module.
package rate
