package authcore

import (
	"context"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"go.uber.org/zap"
)

// Engine issues, validates, refreshes and revokes tokens. Build it with
// [Builder]; its methods are safe for concurrent use.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	hasher      *password.Hasher
	policy      password.Policy
	revocations store.RevocationStore
	existence   store.ExistenceCache
	users       UserStore
	flow        flows.Service
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
	closers     []func()
}

// Close flushes pending audit events and releases in-process caches.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

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

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// IssuePair mints an access and a refresh token for principal. It performs no
// store I/O.
func (e *Engine) IssuePair(ctx context.Context, principal Principal) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flow.Issue(principal.ID)
	if res.Failure != flows.FailureNone {
		e.metricInc(MetricIssueFailure)
		return TokenPair{}, failureError(res.Failure, res.Err)
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokenIssued, true, principal.ID, res.RefreshClaims, nil, nil)
	return pairFromIssue(res), nil
}

// Validate resolves token, of either type, to its principal.
//
// The checks run in order: signature and expiry, revocation, then principal
// resolution against the user store. A revoked token never resolves a
// principal. Store failures are reported as [ErrStoreUnavailable].
func (e *Engine) Validate(ctx context.Context, token string) (*Principal, error) {
	return e.validate(ctx, token, "")
}

// ValidateAccess is Validate restricted to access tokens. A refresh token fails
// with [ErrTokenTypeMismatch].
func (e *Engine) ValidateAccess(ctx context.Context, token string) (*Principal, error) {
	return e.validate(ctx, token, jwt.TypeAccess)
}

func (e *Engine) validate(ctx context.Context, token string, want jwt.TokenType) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := e.flow.Validate(ctx, token, want)
	e.recordExistence(res.Existence)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	if res.Failure != flows.FailureNone {
		err := failureError(res.Failure, res.Err)
		e.metricInc(validateFailureMetric(res.Failure))
		e.emitAudit(ctx, auditEventTokenValidated, false, res.Claims.Subject, res.Claims, err, nil)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return principalFrom(res.Principal), nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// is validated like any other token and must carry the refresh type; it is not
// revoked and stays usable until it expires or is revoked explicitly.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	res := e.flow.Refresh(ctx, refreshToken)
	e.recordExistence(res.Existence)
	if res.Failure != flows.FailureNone {
		err := failureError(res.Failure, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventTokenRefreshed, false, res.Claims.Subject, res.Claims, err, nil)
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventTokenRefreshed, true, res.Claims.Subject, res.AccessClaims, nil, nil)
	return res.AccessToken, nil
}

// Revoke marks token unusable until its own expiry. Revoking the same token
// again succeeds. An already expired token returns [ErrExpired] and nothing is
// stored.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flow.Revoke(ctx, token)
	if res.Failure != flows.FailureNone {
		err := failureError(res.Failure, res.Err)
		e.metricInc(MetricRevokeFailure)
		e.emitAudit(ctx, auditEventTokenRevoked, false, res.Claims.Subject, res.Claims, err, nil)
		return err
	}

	e.metricInc(MetricRevokeSuccess)
	e.emitAudit(ctx, auditEventTokenRevoked, true, res.Claims.Subject, res.Claims, nil, func() map[string]string {
		return map[string]string{"ttl": res.TTL.String()}
	})
	return nil
}

// Login checks username and password against the user store and issues a
// token pair. An unknown username and a wrong password both return
// [ErrInvalidCredentials]; a disabled account returns [ErrPrincipalInactive].
func (e *Engine) Login(ctx context.Context, username, pass string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flow.Login(ctx, username, pass)
	if res.Failure != flows.FailureNone {
		err := failureError(res.Failure, res.Err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Record.ID, jwt.Claims{}, err, func() map[string]string {
			return map[string]string{
				"identifier": username,
				"reason":     res.Reason,
			}
		})
		return TokenPair{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Record.ID, res.Issued.RefreshClaims, nil, nil)
	return pairFromIssue(res.Issued), nil
}

// CheckPassword applies the password policy. On failure it returns a
// *[PolicyError] listing every violated rule; the error matches [ErrValidationFailed].
func (e *Engine) CheckPassword(candidate, username, email string) error {
	policy := password.Policy{MinLength: password.DefaultMinLength}
	if e != nil {
		policy = e.policy
	}
	if violations := policy.Validate(candidate, username, email); len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}

// HashPassword returns the Argon2id hash of pass for account provisioning. It
// does not apply the policy.
func (e *Engine) HashPassword(pass string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return hash, nil
}

func (e *Engine) findPrincipal(ctx context.Context, id int64) (flows.Principal, error) {
	p, err := e.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (e *Engine) findLoginRecord(ctx context.Context, username string) (flows.LoginRecord, error) {
	p, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		return flows.LoginRecord{}, err
	}
	if p == nil {
		return flows.LoginRecord{}, ErrUserNotFound
	}
	return flows.LoginRecord{Principal: p, ID: p.ID, PasswordHash: p.PasswordHash}, nil
}

func (e *Engine) recordExistence(outcome flows.ExistenceOutcome) {
	switch outcome {
	case flows.ExistenceHit:
		e.metricInc(MetricExistenceHit)
	case flows.ExistenceMiss:
		e.metricInc(MetricExistenceMiss)
	}
}

func principalFrom(p flows.Principal) *Principal {
	if principal, ok := p.(*Principal); ok && principal != nil {
		out := *principal
		return &out
	}
	return nil
}

func pairFromIssue(res flows.IssueResult) TokenPair {
	return TokenPair{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		AccessExpiresAt:  res.AccessClaims.ExpiresAt,
		RefreshExpiresAt: res.RefreshClaims.ExpiresAt,
	}
}

func failureError(kind flows.FailureKind, cause error) error {
	switch kind {
	case flows.FailureNone:
		return nil
	case flows.FailureExpired:
		return ErrExpired
	case flows.FailureMalformed:
		return ErrMalformed
	case flows.FailureRevoked:
		return ErrRevoked
	case flows.FailurePrincipalNotFound:
		return ErrPrincipalNotFound
	case flows.FailurePrincipalInactive:
		return ErrPrincipalInactive
	case flows.FailureTypeMismatch:
		return ErrTokenTypeMismatch
	case flows.FailureInvalidCredentials:
		return ErrInvalidCredentials
	case flows.FailureStoreUnavailable:
		if cause == nil {
			return ErrStoreUnavailable
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
	default:
		if cause == nil {
			return fmt.Errorf("token %s failure", kind)
		}
		return fmt.Errorf("token %s failure: %w", kind, cause)
	}
}

func validateFailureMetric(kind flows.FailureKind) MetricID {
	switch kind {
	case flows.FailureExpired:
		return MetricValidateExpired
	case flows.FailureRevoked:
		return MetricValidateRevoked
	case flows.FailurePrincipalNotFound:
		return MetricValidatePrincipalNotFound
	case flows.FailurePrincipalInactive:
		return MetricValidatePrincipalInactive
	case flows.FailureTypeMismatch:
		return MetricValidateTypeMismatch
	case flows.FailureStoreUnavailable:
		return MetricValidateStoreUnavailable
	default:
		return MetricValidateMalformed
	}
}
