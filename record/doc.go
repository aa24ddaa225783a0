// Package record persists one row per issued refresh credential and
// implements the atomic claim-and-revoke protocol that makes rotation safe
// under concurrent and adversarial callers.
//
// # State machine
//
// A record is Active while RevokedAt is unset and Revoked forever after.
// Revocation is monotonic: no operation in this package ever clears
// RevokedAt. Records are never deleted by this package; the Redis store
// lets keys age out through a retention TTL well past credential expiry,
// and the Postgres store leaves retention to external policy.
//
// # Tenant scoping
//
// Every operation takes the tenant identifier as an explicit leading
// parameter. There is no code path that can read or mutate a record without
// naming its tenant.
//
// # What this package must NOT do
//
//   - Parse, sign, or otherwise inspect token material.
//   - Decide what a failed claim means — reuse classification belongs to
//     the rotation engine.
//   - Import tokenkeep or token.
package record
