// Package middleware exposes HTTP guards built on top of
// flockauth.Engine.Authenticate and the engine's role table.
//
// # Guards
//
//   - [Guard]: full route declaration with public flag, minimum role, permission key.
//   - [RequireAuth]: valid session only.
//   - [RequireRole]: minimum role rank.
//   - [RequirePermission]: single permission key.
//
// Each guard reads the Authorization bearer token, calls
// Engine.Authenticate, enforces the route's role and permission
// requirements, and injects the verified identity into the request
// context. Denials carry a stable reason tag next to a generic message.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the user store (Engine handles I/O).
//   - Invent authorization semantics beyond the role table's answers.
package middleware
