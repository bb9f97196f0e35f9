package flows

import (
	"context"

	"github.com/MrEthical07/authcore/jwt"
)

// RefreshDeps captures refresh-exchange dependencies.
type RefreshDeps struct {
	Validate ValidateDeps
	Issue    IssueDeps
}

// RefreshResult carries the new access token or the failure.
type RefreshResult struct {
	Failure      FailureKind
	Err          error
	Claims       jwt.Claims
	Principal    Principal
	Existence    ExistenceOutcome
	AccessToken  string
	AccessClaims jwt.Claims
}

// RunRefresh validates a refresh token and mints a fresh access token for its subject.
// The presented refresh token stays usable.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	v := RunValidate(ctx, refreshToken, jwt.TypeRefresh, deps.Validate)
	if v.Failure != FailureNone {
		return RefreshResult{
			Failure:   v.Failure,
			Err:       v.Err,
			Claims:    v.Claims,
			Principal: v.Principal,
			Existence: v.Existence,
		}
	}

	issued := RunIssueAccess(v.Claims.Subject, deps.Issue)
	if issued.Failure != FailureNone {
		return RefreshResult{
			Failure:   issued.Failure,
			Err:       issued.Err,
			Claims:    v.Claims,
			Principal: v.Principal,
			Existence: v.Existence,
		}
	}

	return RefreshResult{
		Claims:       v.Claims,
		Principal:    v.Principal,
		Existence:    v.Existence,
		AccessToken:  issued.AccessToken,
		AccessClaims: issued.AccessClaims,
	}
}
