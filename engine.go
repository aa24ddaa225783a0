package tokenkeep

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/soluslab/tokenkeep/internal/flows"
	"github.com/soluslab/tokenkeep/record"
	"github.com/soluslab/tokenkeep/token"
)

// Engine defines a public type used by tokenkeep APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config  Config
	signer  token.Signer
	store   record.Store
	audit   *auditDispatcher
	metrics *Metrics
	deps    flows.Deps
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueAccess mints a short-lived, stateless access credential. Nothing is
// persisted: the access token's validity rests on its signature and expiry
// alone, which keeps verification a pure CPU operation.
//
// IssueAccess may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) IssueAccess(ctx context.Context, subjectID, tenantID, role string) (string, error) {
	if e == nil || e.signer == nil {
		return "", ErrEngineNotReady
	}

	signed, err := e.signer.SignAccess(subjectID, tenantID, role, uuid.NewString())
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, subjectID, tenantID, "", auditErrSignFailure, nil)
		return "", err
	}

	e.metricInc(MetricAccessIssued)
	e.emitAudit(ctx, auditEventAccessIssued, true, subjectID, tenantID, "", "", nil)

	return signed, nil
}

// IssueRefresh mints a refresh credential and persists its record. An empty
// sessionID starts a new session family; passing an existing sessionID
// issues a parallel credential into that family (device handoff). The
// returned sessionID is the family the credential belongs to.
//
// IssueRefresh may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) IssueRefresh(ctx context.Context, subjectID, tenantID, sessionID string) (string, string, error) {
	if e == nil || e.signer == nil || e.store == nil {
		return "", "", ErrEngineNotReady
	}

	res := flows.RunIssueRefresh(ctx, subjectID, tenantID, sessionID, e.deps.IssueRefresh)
	if res.Failure != flows.IssueFailureNone {
		e.metricInc(MetricIssueFailure)
		code := auditErrSignFailure
		if res.Failure == flows.IssueFailurePersist {
			code = auditErrStoreUnavailable
		}
		e.emitAudit(ctx, auditEventIssueFailure, false, subjectID, tenantID, res.SessionID, code, nil)
		return "", "", res.Err
	}

	e.metricInc(MetricRefreshIssued)
	e.emitAudit(ctx, auditEventRefreshIssued, true, subjectID, tenantID, res.SessionID, "", func() map[string]string {
		return map[string]string{"token_id": res.TokenID}
	})

	return res.RefreshToken, res.SessionID, nil
}

// IssuePair mints an access and a refresh credential together, the common
// login shape. The refresh record is persisted first so a store failure
// issues nothing at all.
//
// IssuePair may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) IssuePair(ctx context.Context, subjectID, tenantID, role string) (access, refresh, sessionID string, err error) {
	refresh, sessionID, err = e.IssueRefresh(ctx, subjectID, tenantID, "")
	if err != nil {
		return "", "", "", err
	}

	access, err = e.IssueAccess(ctx, subjectID, tenantID, role)
	if err != nil {
		return "", "", "", err
	}

	return access, refresh, sessionID, nil
}

// VerifyAccess checks an access credential's signature, expiry, and claim
// shape, returning its claims on success. No store round trip happens here.
// Every rejection reason collapses to [ErrUnauthorized]; the distinction
// reaches metrics and audit only.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*token.AccessClaims, error) {
	if e == nil || e.signer == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.signer.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyRejected, false, "", "", "", auditErrInvalidToken, nil)
		return nil, ErrUnauthorized
	}

	e.metricInc(MetricVerifySuccess)

	return claims, nil
}

// Rotate exchanges a presented refresh credential for its successor in the
// same session family. Exactly one concurrent presenter of the same
// credential wins; every other one sees [ErrUnauthorized] and, because a
// lost claim means the credential was already spent, the whole family is
// revoked as a reuse response.
//
// The returned claims are the verified claims of the presented credential,
// so a transport can mint a fresh access token for the same subject without
// re-authenticating. Credential judgments surface only as [ErrUnauthorized];
// [ErrRateLimited] and [ErrStoreUnavailable] are operational outcomes, not
// judgments about the credential.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (string, *token.RefreshClaims, error) {
	if e == nil || e.signer == nil || e.store == nil {
		return "", nil, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunRotate(ctx, refreshToken, e.deps.Rotate)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricRotateLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.RotateFailureNone:
		e.metricInc(MetricRotateSuccess)
		e.emitAudit(ctx, auditEventRotateSuccess, true, res.SubjectID, res.TenantID, res.SessionID, "", func() map[string]string {
			return map[string]string{
				"old_token_id": res.PresentedTokenID,
				"new_token_id": res.NewTokenID,
			}
		})
		return res.RefreshToken, res.Claims, nil

	case flows.RotateFailureDecode:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateRejected, false, "", "", "", auditErrInvalidToken, nil)
		return "", nil, ErrUnauthorized

	case flows.RotateFailureRateLimited:
		e.metricInc(MetricRotateRateLimited)
		e.emitAudit(ctx, auditEventRotateRateLimited, false, res.SubjectID, res.TenantID, res.SessionID, auditErrRateLimited, nil)
		return "", nil, ErrRateLimited

	case flows.RotateFailureLegacyClaims:
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricLegacyRejected)
		e.emitAudit(ctx, auditEventRotateRejected, false, res.SubjectID, res.TenantID, res.SessionID, auditErrLegacyToken, nil)
		return "", nil, ErrUnauthorized

	case flows.RotateFailureReuse:
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricReuseDetected)
		e.metricInc(MetricFamilyRevoked)
		if res.CascadeRevoked > 0 {
			e.metrics.Add(MetricRecordsRevoked, uint64(res.CascadeRevoked))
		}
		e.emitAudit(ctx, auditEventRotateReuse, false, res.SubjectID, res.TenantID, res.SessionID, auditErrReuseDetected, func() map[string]string {
			return map[string]string{
				"token_id": res.PresentedTokenID,
			}
		})
		return "", nil, ErrUnauthorized

	case flows.RotateFailureSign:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateRejected, false, res.SubjectID, res.TenantID, res.SessionID, auditErrSignFailure, nil)
		return "", nil, res.Err

	case flows.RotateFailureStore:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateRejected, false, res.SubjectID, res.TenantID, res.SessionID, auditErrStoreUnavailable, nil)
		return "", nil, res.Err
	}

	return "", nil, errors.New("unreachable rotation outcome")
}

// RevokeFamily revokes every record in a session family. Idempotent:
// revoking an already-dead family succeeds and revokes nothing. This is the
// logout and credential-compromise entry point.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) RevokeFamily(ctx context.Context, tenantID, subjectID, sessionID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	revoked, err := flows.RunRevokeFamily(ctx, tenantID, subjectID, sessionID, e.deps.Revoke)
	if err != nil {
		e.emitAudit(ctx, auditEventFamilyRevokeFailed, false, subjectID, tenantID, sessionID, auditErrStoreUnavailable, nil)
		return err
	}

	if revoked > 0 {
		e.metricInc(MetricFamilyRevoked)
		e.metrics.Add(MetricRecordsRevoked, uint64(revoked))
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, subjectID, tenantID, sessionID, "", nil)

	return nil
}

// RevokeByRefreshToken resolves the session family from a presented refresh
// credential and revokes it — logout without the caller tracking session
// identifiers. A credential that fails verification revokes nothing and
// returns [ErrUnauthorized].
func (e *Engine) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	if e == nil || e.signer == nil || e.store == nil {
		return ErrEngineNotReady
	}

	res := flows.RunRevokeByRefreshToken(ctx, refreshToken, e.deps.Revoke)
	if res.Err != nil {
		if errors.Is(res.Err, record.ErrStoreUnavailable) {
			e.emitAudit(ctx, auditEventFamilyRevokeFailed, false, res.SubjectID, res.TenantID, res.SessionID, auditErrStoreUnavailable, nil)
			return res.Err
		}
		e.emitAudit(ctx, auditEventFamilyRevokeFailed, false, res.SubjectID, res.TenantID, res.SessionID, auditErrInvalidToken, nil)
		return ErrUnauthorized
	}

	if res.Revoked > 0 {
		e.metricInc(MetricFamilyRevoked)
		e.metrics.Add(MetricRecordsRevoked, uint64(res.Revoked))
	}
	e.emitAudit(ctx, auditEventFamilyRevoked, true, res.SubjectID, res.TenantID, res.SessionID, "", nil)

	return nil
}

// ActiveRecords lists the still-active records of a session family, a
// diagnostic view for admin tooling. After a completed rotation the list
// holds exactly one record.
//
// ActiveRecords may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ActiveRecords(ctx context.Context, tenantID, subjectID, sessionID string) ([]record.Record, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	return e.store.FindActiveBySession(ctx, tenantID, subjectID, sessionID)
}

// StorePing round-trips the record store and reports the observed latency,
// for health endpoints.
//
// StorePing may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) StorePing(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}
