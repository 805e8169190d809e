// Package password implements one-way password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// The salt is drawn fresh per call, so hashing the same plaintext twice never
// yields the same digest. [Hasher.NeedsUpgrade] reports digests produced with
// weaker-than-configured parameters so callers can re-hash on the next
// successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy beyond the
// minimum length (confirmation matching, reuse rejection) is enforced by the
// Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive digests.
//   - Import any other flockauth package.
//   - Log plaintext passwords or digest parameters.
package password
