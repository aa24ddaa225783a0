// Package flows contains pure-function orchestrators for every Engine
// operation on the credential lifecycle.
//
// Each flow function (RunRotate, RunIssueRefresh, RunRevokeFamily, ...)
// accepts a typed dependency struct and returns a result carrying either
// the outcome or a failure kind for root-level mapping to metrics, audit
// events, and the public error surface. This design enables exhaustive
// unit testing with fake dependencies and keeps the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the signer, the record store, and the
// optional rate limiter. They do NOT own any of these resources —
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenkeep (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency
//     interfaces.
package flows
