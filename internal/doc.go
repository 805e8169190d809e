// Package internal contains helper utilities that are intentionally private
// to flockauth, including reset-token generation and fingerprinting.
//
// # Sub-packages
//
//   - rate: Redis-backed fixed-window throttle counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public flockauth API.
//   - Be imported by any package outside the flockauth module.
package internal
