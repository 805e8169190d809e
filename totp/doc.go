// Package totp implements time-based one-time-password generation and
// verification (RFC 6238) on top of github.com/pquerna/otp.
//
// # Architecture boundaries
//
// This package owns secret generation, provisioning-URI construction, and
// code verification. Enrollment state (pending vs enabled secrets) lives on
// the user record and is orchestrated by the Engine.
//
// # What this package must NOT do
//
//   - Persist secrets or codes.
//   - Render QR codes. Callers receive the otpauth:// URI only.
//   - Import any other flockauth package.
package totp
