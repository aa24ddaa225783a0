// Package token implements signing and verification of the compact claim
// sets carried by access and refresh credentials.
//
// # Token format
//
// Standard three-part JWTs (header/payload/signature) signed with an HS256
// symmetric secret. Access claims carry subject, tenant, and role; refresh
// claims carry subject, tenant, and the session family identifier. Both
// carry a jti that uniquely identifies the credential instance.
//
// # Architecture boundaries
//
// This package owns cryptographic signing, parsing, and time/claim
// validation. Rotation policy, reuse detection, and record persistence are
// handled by the Engine and the record store.
//
// # What this package must NOT do
//
//   - Access Redis, SQL, or any I/O.
//   - Import tokenkeep or record.
//   - Decide what happens after a verification failure.
package token
