package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/jwt"
)

// ValidateDeps captures the decode, revocation and principal resolution dependencies.
type ValidateDeps struct {
	Decode    func(string) (jwt.Claims, error)
	IsRevoked func(context.Context, string) (bool, error)
	FindByID  func(context.Context, int64) (Principal, error)
	// Probe and Remember are optional; a nil pair disables the existence cache.
	// Each call is bounded by Retry.Timeout and never retried.
	Probe          func(context.Context, int64) (bool, error)
	Remember       func(context.Context, int64) error
	UserNotFound   error
	RejectInactive bool
	Retry          RetryPolicy
	// CacheError receives existence cache failures, which never fail a validation.
	CacheError func(error)
}

// ValidateResult returns the resolved principal or a classified failure.
type ValidateResult struct {
	Failure   FailureKind
	Err       error
	Claims    jwt.Claims
	Principal Principal
	Existence ExistenceOutcome
}

// RunValidate decodes token, rejects the wrong type when want is set, checks
// revocation, then resolves the subject against the user store.
//
// The revocation check always precedes principal resolution.
func RunValidate(ctx context.Context, token string, want jwt.TokenType, deps ValidateDeps) ValidateResult {
	claims, err := deps.Decode(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return ValidateResult{Failure: FailureExpired, Err: err}
		}
		return ValidateResult{Failure: FailureMalformed, Err: err}
	}
	if want != "" && claims.Type != want {
		return ValidateResult{Failure: FailureTypeMismatch, Claims: claims}
	}

	var revoked bool
	err = deps.Retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		revoked, callErr = deps.IsRevoked(ctx, claims.JTI)
		return callErr
	})
	if err != nil {
		return ValidateResult{Failure: FailureStoreUnavailable, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: FailureRevoked, Claims: claims}
	}

	existence := ExistenceSkipped
	if deps.Probe != nil {
		var hit bool
		err := deps.Retry.Once(ctx, func(ctx context.Context) error {
			var callErr error
			hit, callErr = deps.Probe(ctx, claims.Subject)
			return callErr
		})
		switch {
		case err != nil:
			deps.cacheError(err)
			existence = ExistenceMiss
		case hit:
			existence = ExistenceHit
		default:
			existence = ExistenceMiss
		}
	}

	// A hit is only a hint: the store lookup happens either way.
	var principal Principal
	retry := deps.Retry
	retry.Permanent = func(err error) bool {
		return deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound)
	}
	err = retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		principal, callErr = deps.FindByID(ctx, claims.Subject)
		return callErr
	})
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return ValidateResult{Failure: FailurePrincipalNotFound, Err: err, Claims: claims, Existence: existence}
		}
		return ValidateResult{Failure: FailureStoreUnavailable, Err: err, Claims: claims, Existence: existence}
	}
	if principal == nil {
		return ValidateResult{Failure: FailurePrincipalNotFound, Claims: claims, Existence: existence}
	}

	if existence == ExistenceMiss && deps.Remember != nil {
		err := deps.Retry.Once(ctx, func(ctx context.Context) error {
			return deps.Remember(ctx, claims.Subject)
		})
		if err != nil {
			deps.cacheError(err)
		}
	}

	if deps.RejectInactive && !principal.Usable() {
		return ValidateResult{Failure: FailurePrincipalInactive, Claims: claims, Principal: principal, Existence: existence}
	}

	return ValidateResult{Claims: claims, Principal: principal, Existence: existence}
}

func (d ValidateDeps) cacheError(err error) {
	if d.CacheError != nil {
		d.CacheError(err)
	}
}
