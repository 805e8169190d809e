// Package role implements the static authorization model: an immutable table
// mapping each role to an ordered rank and a permission set.
//
// The table is constructed once at process start and frozen; every check
// afterwards is a side-effect-free, deterministic map lookup evaluated on
// each guarded request.
//
// # Semantics
//
//   - Minimum-role checks compare ranks: rank(user) >= rank(required).
//   - Permission checks are exact key membership, or the [Wildcard] meaning
//     "all permissions", including keys absent from every explicit set.
//
// # What this package must NOT do
//
//   - Perform I/O or hold mutable post-freeze state.
//   - Infer hierarchy between permission keys.
package role
