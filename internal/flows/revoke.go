package flows

import (
	"context"
	"time"

	"github.com/soluslab/tokenkeep/token"
)

// RevokeStore captures the store operation the revocation flows need.
type RevokeStore interface {
	RevokeAllInSession(ctx context.Context, tenantID, subjectID, sessionID string, now time.Time) (int64, error)
}

// RevokeDeps captures revocation flow dependencies.
type RevokeDeps struct {
	ParseRefresh func(string) (*token.RefreshClaims, error)
	Now          func() time.Time
	Store        RevokeStore
}

// RunRevokeFamily cascades revocation over an entire session family.
// Idempotent: revoking a dead family returns zero.
func RunRevokeFamily(ctx context.Context, tenantID, subjectID, sessionID string, deps RevokeDeps) (int64, error) {
	return deps.Store.RevokeAllInSession(ctx, tenantID, subjectID, sessionID, deps.Now())
}

// RevokeByTokenResult carries family coordinates resolved from a presented
// refresh credential, for logout-by-token.
type RevokeByTokenResult struct {
	Err       error
	TenantID  string
	SubjectID string
	SessionID string
	Revoked   int64
}

// RunRevokeByRefreshToken parses a refresh credential and revokes its whole
// family. A token that fails verification or lacks a session identifier
// revokes nothing — an unverified presenter must not be able to log other
// sessions out.
func RunRevokeByRefreshToken(ctx context.Context, refreshToken string, deps RevokeDeps) RevokeByTokenResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RevokeByTokenResult{Err: err}
	}
	if claims.SessionID == "" {
		return RevokeByTokenResult{
			Err:       token.ErrMalformed,
			TenantID:  claims.TenantID,
			SubjectID: claims.Subject,
		}
	}

	revoked, err := deps.Store.RevokeAllInSession(ctx, claims.TenantID, claims.Subject, claims.SessionID, deps.Now())
	return RevokeByTokenResult{
		Err:       err,
		TenantID:  claims.TenantID,
		SubjectID: claims.Subject,
		SessionID: claims.SessionID,
		Revoked:   revoked,
	}
}
