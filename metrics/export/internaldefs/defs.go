package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const AuditDroppedName = "authcore_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: authcore.MetricIssueSuccess, Name: "authcore_issue_success_total", Help: "Token pairs issued."},
	{ID: authcore.MetricIssueFailure, Name: "authcore_issue_failure_total", Help: "Token pair issuances that failed to sign."},
	{ID: authcore.MetricValidateSuccess, Name: "authcore_validate_success_total", Help: "Tokens that resolved to a principal."},
	{ID: authcore.MetricValidateExpired, Name: "authcore_validate_expired_total", Help: "Validations rejected as expired."},
	{ID: authcore.MetricValidateMalformed, Name: "authcore_validate_malformed_total", Help: "Validations rejected as malformed or tampered."},
	{ID: authcore.MetricValidateRevoked, Name: "authcore_validate_revoked_total", Help: "Validations rejected as revoked."},
	{ID: authcore.MetricValidatePrincipalNotFound, Name: "authcore_validate_principal_not_found_total", Help: "Validations whose subject no longer exists."},
	{ID: authcore.MetricValidatePrincipalInactive, Name: "authcore_validate_principal_inactive_total", Help: "Validations whose principal is disabled or deleted."},
	{ID: authcore.MetricValidateTypeMismatch, Name: "authcore_validate_type_mismatch_total", Help: "Validations presenting the wrong token type."},
	{ID: authcore.MetricValidateStoreUnavailable, Name: "authcore_validate_store_unavailable_total", Help: "Validations that failed on a store outage."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh exchanges."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh exchanges."},
	{ID: authcore.MetricRevokeSuccess, Name: "authcore_revoke_success_total", Help: "Successful revocations."},
	{ID: authcore.MetricRevokeFailure, Name: "authcore_revoke_failure_total", Help: "Failed revocations."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed logins."},
	{ID: authcore.MetricExistenceHit, Name: "authcore_existence_hit_total", Help: "Existence cache hits."},
	{ID: authcore.MetricExistenceMiss, Name: "authcore_existence_miss_total", Help: "Existence cache misses."},
	{ID: authcore.MetricStoreRetry, Name: "authcore_store_retry_total", Help: "Store calls retried after a failure."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Validate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters without
// native histograms.
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

const bucketCount = 8

// NormalizeBuckets pads or truncates raw to the engine's bucket count.
func NormalizeBuckets(raw []uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [bucketCount]uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
