package internaldefs

import (
	tokenkeep "github.com/soluslab/tokenkeep"
)

// CounterDef defines a public type used by tokenkeep APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   tokenkeep.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by tokenkeep APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   tokenkeep.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the credential engine.
var CounterDefs = []CounterDef{
	{ID: tokenkeep.MetricAccessIssued, Name: "tokenkeep_access_issued_total", Help: "Issued access credentials."},
	{ID: tokenkeep.MetricRefreshIssued, Name: "tokenkeep_refresh_issued_total", Help: "Issued refresh credentials."},
	{ID: tokenkeep.MetricIssueFailure, Name: "tokenkeep_issue_failure_total", Help: "Failed issuance attempts."},
	{ID: tokenkeep.MetricVerifySuccess, Name: "tokenkeep_verify_success_total", Help: "Successful access verifications."},
	{ID: tokenkeep.MetricVerifyFailure, Name: "tokenkeep_verify_failure_total", Help: "Rejected access verifications."},
	{ID: tokenkeep.MetricRotateSuccess, Name: "tokenkeep_rotate_success_total", Help: "Successful rotations."},
	{ID: tokenkeep.MetricRotateFailure, Name: "tokenkeep_rotate_failure_total", Help: "Rejected rotations."},
	{ID: tokenkeep.MetricRotateRateLimited, Name: "tokenkeep_rotate_rate_limited_total", Help: "Rate-limited rotation attempts."},
	{ID: tokenkeep.MetricReuseDetected, Name: "tokenkeep_reuse_detected_total", Help: "Detected refresh credential reuses."},
	{ID: tokenkeep.MetricLegacyRejected, Name: "tokenkeep_legacy_rejected_total", Help: "Refresh tokens rejected for missing rotation claims."},
	{ID: tokenkeep.MetricFamilyRevoked, Name: "tokenkeep_family_revoked_total", Help: "Session family cascade revocations."},
	{ID: tokenkeep.MetricRecordsRevoked, Name: "tokenkeep_records_revoked_total", Help: "Individual records transitioned by cascade revocations."},
}

// HistogramDefs is an exported constant or variable used by the credential engine.
var HistogramDefs = []HistogramDef{
	{ID: tokenkeep.MetricRotateLatency, Name: "tokenkeep_rotate_latency_seconds", Help: "Rotate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the credential engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the credential engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
