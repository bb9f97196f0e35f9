package flows

import (
	"context"
	"errors"
)

// LoginRecord is the flow-local view of a principal looked up by username.
type LoginRecord struct {
	Principal    Principal
	ID           int64
	PasswordHash string
}

// LoginDeps captures username/password login dependencies.
type LoginDeps struct {
	FindByUsername func(context.Context, string) (LoginRecord, error)
	VerifyPassword func(password, encodedHash string) (bool, error)
	UserNotFound   error
	Retry          RetryPolicy
	Issue          IssueDeps
}

// LoginResult carries the issued pair or the failure and a short audit reason.
type LoginResult struct {
	Failure FailureKind
	Err     error
	Reason  string
	Record  LoginRecord
	Issued  IssueResult
}

// RunLogin checks credentials and issues a token pair. An unknown username and
// a wrong password are indistinguishable to the caller.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if username == "" || password == "" {
		return LoginResult{Failure: FailureInvalidCredentials, Reason: "empty_credentials"}
	}

	notFound := func(err error) bool {
		return deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound)
	}
	retry := deps.Retry
	retry.Permanent = notFound

	var record LoginRecord
	err := retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		record, callErr = deps.FindByUsername(ctx, username)
		return callErr
	})
	if err != nil {
		if notFound(err) {
			return LoginResult{Failure: FailureInvalidCredentials, Reason: "user_not_found"}
		}
		return LoginResult{Failure: FailureStoreUnavailable, Err: err, Reason: "store_unavailable"}
	}
	if record.Principal == nil {
		return LoginResult{Failure: FailureInvalidCredentials, Reason: "user_not_found"}
	}

	if !record.Principal.Usable() {
		return LoginResult{Failure: FailurePrincipalInactive, Reason: "account_disabled", Record: record}
	}
	ok, err := deps.VerifyPassword(password, record.PasswordHash)
	if err != nil || !ok {
		return LoginResult{Failure: FailureInvalidCredentials, Reason: "password_mismatch", Record: record}
	}

	issued := RunIssue(record.ID, deps.Issue)
	if issued.Failure != FailureNone {
		return LoginResult{Failure: issued.Failure, Err: issued.Err, Reason: "token_encode", Record: record}
	}
	return LoginResult{Record: record, Issued: issued}
}
