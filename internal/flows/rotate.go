package flows

import (
	"context"
	"time"

	"github.com/soluslab/tokenkeep/record"
	"github.com/soluslab/tokenkeep/token"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureDecode
	RotateFailureRateLimited
	RotateFailureLegacyClaims
	RotateFailureReuse
	RotateFailureStore
	RotateFailureSign
)

// RotateResult carries either the issued successor token or failure
// metadata. On the reuse path CascadeRevoked holds how many family records
// the cascade transitioned.
type RotateResult struct {
	Failure          RotateFailureKind
	Err              error
	TenantID         string
	SubjectID        string
	SessionID        string
	PresentedTokenID string
	NewTokenID       string
	CascadeRevoked   int64
	RefreshToken     string
	Claims           *token.RefreshClaims
}

// RotateRateLimiter is the optional external veto consulted before any
// store round trip.
type RotateRateLimiter interface {
	CheckRotate(ctx context.Context, sessionID string) error
}

// RotateStore captures the store operations the rotation flow needs.
type RotateStore interface {
	Rotate(ctx context.Context, tenantID, subjectID, tokenID string, successor record.Record) (bool, error)
	RevokeAllInSession(ctx context.Context, tenantID, subjectID, sessionID string, now time.Time) (int64, error)
}

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	ParseRefresh func(string) (*token.RefreshClaims, error)
	SignRefresh  func(subjectID, tenantID, sessionID, tokenID string, ttl time.Duration) (string, error)
	NewTokenID   func() string
	RefreshTTL   time.Duration
	Now          func() time.Time
	RateLimiter  RotateRateLimiter
	Store        RotateStore
	Warn         func(string, ...any)
}

// RunRotate executes the exactly-once exchange of a presented refresh
// credential for its successor.
//
// The successor token is signed before the store round trip, so a signing
// failure has no side effects. The store's Rotate op performs claim and
// successor create in one atomic step; a false return means the presented
// credential is no longer the current one in its family — treated as reuse,
// the whole family is revoked. A cascade error is reported through Warn but
// never masks the reuse outcome.
func RunRotate(ctx context.Context, refreshToken string, deps RotateDeps) RotateResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RotateResult{
			Failure: RotateFailureDecode,
			Err:     err,
		}
	}

	res := RotateResult{
		TenantID:         claims.TenantID,
		SubjectID:        claims.Subject,
		SessionID:        claims.SessionID,
		PresentedTokenID: claims.ID,
		Claims:           claims,
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRotate(ctx, claims.SessionID); err != nil {
			res.Failure = RotateFailureRateLimited
			res.Err = err
			return res
		}
	}

	// Tokens minted before rotation support lack jti or sid. They are never
	// rotated and never trusted as a reuse signal for any family.
	if claims.ID == "" || claims.SessionID == "" {
		res.Failure = RotateFailureLegacyClaims
		return res
	}

	now := deps.Now()
	successor := record.Record{
		TenantID:  claims.TenantID,
		SubjectID: claims.Subject,
		SessionID: claims.SessionID,
		TokenID:   deps.NewTokenID(),
		IssuedAt:  now,
		ExpiresAt: now.Add(deps.RefreshTTL),
	}

	signed, err := deps.SignRefresh(
		successor.SubjectID,
		successor.TenantID,
		successor.SessionID,
		successor.TokenID,
		deps.RefreshTTL,
	)
	if err != nil {
		res.Failure = RotateFailureSign
		res.Err = err
		return res
	}

	claimed, err := deps.Store.Rotate(ctx, claims.TenantID, claims.Subject, claims.ID, successor)
	if err != nil {
		res.Failure = RotateFailureStore
		res.Err = err
		return res
	}

	if !claimed {
		// Record missing and record already revoked are deliberately
		// indistinguishable here: both mean a non-current credential was
		// presented, and the conservative reaction is the same.
		revoked, cascadeErr := deps.Store.RevokeAllInSession(ctx, claims.TenantID, claims.Subject, claims.SessionID, deps.Now())
		if cascadeErr != nil && deps.Warn != nil {
			deps.Warn("tokenkeep: family revocation after reuse detection failed")
		}
		res.Failure = RotateFailureReuse
		res.CascadeRevoked = revoked
		return res
	}

	res.NewTokenID = successor.TokenID
	res.RefreshToken = signed
	return res
}
