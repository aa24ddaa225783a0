package tokenkeep

import (
	"errors"

	"github.com/soluslab/tokenkeep/record"
)

var (
	// ErrUnauthorized is the single credential-judgment failure exposed by
	// the engine. Verification and rotation deliberately collapse every
	// rejection reason (bad signature, expiry, legacy format, reuse,
	// unknown record) into this value so transports cannot leak which
	// condition fired; the distinctions reach metrics and audit only.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when the external rotation rate limiter
	// vetoes the attempt.
	ErrRateLimited = errors.New("rotation rate limited")
	// ErrStoreUnavailable reports record store infrastructure failure. It
	// is operational, not a credential judgment.
	ErrStoreUnavailable = record.ErrStoreUnavailable
	// ErrEngineNotReady is an exported constant or variable used by the
	// credential engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
