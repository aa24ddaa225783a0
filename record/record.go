package record

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps infrastructure failures (Redis or SQL backend
// unreachable, script/transaction errors). It is never a judgment about the
// credential itself.
var ErrStoreUnavailable = errors.New("record store unavailable")

// Record is the persisted state of one issued refresh credential.
// (TenantID, SubjectID, TokenID) is unique; SessionID groups every record
// ever issued for one login session into a family.
type Record struct {
	TenantID  string
	SubjectID string
	SessionID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the record is still claimable.
func (r Record) Active() bool {
	return r.RevokedAt == nil
}

// Store is the persistence contract consumed by the rotation engine. All
// mutating operations must be safe under concurrent access from multiple
// processes; ordinary transactional or single-script guarantees of the
// backing store suffice, no in-process locking is expected.
type Store interface {
	// CreateRecord persists a new Active record.
	CreateRecord(ctx context.Context, rec Record) error

	// ClaimAndRevoke atomically finds the Active record for the given token
	// and marks it revoked at now. It returns true when exactly this call
	// performed the transition; false when the record does not exist or was
	// already revoked. Under concurrent callers presenting the same token,
	// at most one call returns true.
	ClaimAndRevoke(ctx context.Context, tenantID, subjectID, tokenID string, now time.Time) (bool, error)

	// Rotate atomically claims the record identified by tokenID and creates
	// the Active successor record in the same atomic step. Either both
	// happen or neither does. It returns false without side effects when
	// the claim fails.
	Rotate(ctx context.Context, tenantID, subjectID, tokenID string, successor Record) (bool, error)

	// RevokeAllInSession marks every still-Active record of the session
	// family revoked at now and returns how many were transitioned.
	// Revoking a dead family is a no-op returning zero.
	RevokeAllInSession(ctx context.Context, tenantID, subjectID, sessionID string, now time.Time) (int64, error)

	// FindActiveBySession returns the Active records of a session family,
	// for diagnostics and tests. The single-active invariant means the
	// result has at most one element outside of store corruption.
	FindActiveBySession(ctx context.Context, tenantID, subjectID, sessionID string) ([]Record, error)

	// Ping reports backend availability and round-trip latency.
	Ping(ctx context.Context) (time.Duration, error)
}
