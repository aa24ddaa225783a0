package tokenkeep

import "context"

// RotationRateLimiter is the narrow seam to an external rate limiter
// consulted before each rotation attempt. Rate limiting itself lives
// outside this core; the engine only honors the veto, which surfaces as
// [ErrRateLimited].
type RotationRateLimiter interface {
	CheckRotate(ctx context.Context, sessionID string) error
}
