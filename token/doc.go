// Package token issues and verifies the signed, time-bound JWT credentials
// carrying identity and role claims.
//
// # Dual-secret design
//
// The Engine holds two [Manager] instances, one per [Kind], configured with
// independent secrets and TTLs. Compromise of the refresh secret therefore
// cannot forge access tokens, and vice versa; rotating one secret never
// weakens the other.
//
// # Failure surface
//
// Verify collapses every failure onto two sentinels. [ErrTokenExpired] and
// [ErrTokenMalformed] are surfaced to end users as the same generic
// authorization failure but are logged distinctly.
//
// # What this package must NOT do
//
//   - Touch the user store. A verified token does not imply the user still
//     exists; the Engine re-checks.
//   - Import any other flockauth package.
package token
