package tokenkeep

import (
	"context"
	"time"
)

const (
	auditEventAccessIssued       = "access_issued"
	auditEventRefreshIssued      = "refresh_issued"
	auditEventIssueFailure       = "issue_failure"
	auditEventVerifyRejected     = "verify_rejected"
	auditEventRotateSuccess      = "rotate_success"
	auditEventRotateRejected     = "rotate_rejected"
	auditEventRotateRateLimited  = "rotate_rate_limited"
	auditEventRotateReuse        = "rotate_reuse_detected"
	auditEventFamilyRevoked      = "family_revoked"
	auditEventFamilyRevokeFailed = "family_revoke_failed"
)

// AuditErrorCode defines a public type used by tokenkeep APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrLegacyToken      AuditErrorCode = "legacy_token"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrReuseDetected    AuditErrorCode = "reuse_detected"
	auditErrSignFailure      AuditErrorCode = "sign_failure"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	tenantID string,
	sessionID string,
	code AuditErrorCode,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}
	if code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
