// Package tokenkeep provides a multi-tenant session credential engine with
// short-lived JWT access tokens and single-use rotating refresh tokens,
// including reuse detection with cascading family revocation.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenkeep is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (MetricsSnapshot, AuditEvent, etc.). Token signing lives in
// the token package, record persistence behind [record.Store], and flow
// orchestration under internal/flows, which is never exported.
//
// # What this package must NOT do
//
//   - Expose store clients or wire encoding details in its public API.
//   - Reveal through its returned errors why a credential was rejected; every
//     credential judgment surfaces as [ErrUnauthorized], and the distinctions
//     flow into metrics and audit events only.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//
// # Performance contract
//
// VerifyAccess is the hot path. It is a pure CPU operation: signature and
// claim checks only, no store round-trips. Rotate, IssueRefresh, and the
// revocation operations are allowed one store round-trip per call, with the
// reuse cascade allowed a second.
package tokenkeep
