package flows

import (
	"context"
	"time"

	"github.com/soluslab/tokenkeep/record"
)

// IssueFailureKind classifies refresh issuance failures for root-level
// mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSign
	IssueFailurePersist
)

// IssueRefreshResult carries the issued token or failure metadata.
type IssueRefreshResult struct {
	Failure      IssueFailureKind
	Err          error
	TenantID     string
	SubjectID    string
	SessionID    string
	TokenID      string
	RefreshToken string
}

// IssueStore captures the store operation the issuance flow needs.
type IssueStore interface {
	CreateRecord(ctx context.Context, rec record.Record) error
}

// IssueRefreshDeps captures refresh issuance flow dependencies.
type IssueRefreshDeps struct {
	SignRefresh  func(subjectID, tenantID, sessionID, tokenID string, ttl time.Duration) (string, error)
	NewTokenID   func() string
	NewSessionID func() string
	RefreshTTL   time.Duration
	Now          func() time.Time
	Store        IssueStore
}

// RunIssueRefresh mints a refresh credential and persists its record. An
// empty sessionID starts a new session family.
//
// The order is sign, persist, return: a persistence failure drops the
// signed token before any caller sees it, so a signed-but-unpersisted
// credential is never in circulation. Even if one escaped through a crash,
// rotation treats an unpersisted token the same as a reused one.
func RunIssueRefresh(ctx context.Context, subjectID, tenantID, sessionID string, deps IssueRefreshDeps) IssueRefreshResult {
	if sessionID == "" {
		sessionID = deps.NewSessionID()
	}

	now := deps.Now()
	rec := record.Record{
		TenantID:  tenantID,
		SubjectID: subjectID,
		SessionID: sessionID,
		TokenID:   deps.NewTokenID(),
		IssuedAt:  now,
		ExpiresAt: now.Add(deps.RefreshTTL),
	}

	res := IssueRefreshResult{
		TenantID:  tenantID,
		SubjectID: subjectID,
		SessionID: sessionID,
		TokenID:   rec.TokenID,
	}

	signed, err := deps.SignRefresh(subjectID, tenantID, sessionID, rec.TokenID, deps.RefreshTTL)
	if err != nil {
		res.Failure = IssueFailureSign
		res.Err = err
		return res
	}

	if err := deps.Store.CreateRecord(ctx, rec); err != nil {
		res.Failure = IssueFailurePersist
		res.Err = err
		return res
	}

	res.RefreshToken = signed
	return res
}
