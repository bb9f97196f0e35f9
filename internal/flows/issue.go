package flows

import (
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// IssueDeps captures token minting dependencies.
type IssueDeps struct {
	Encode     func(jwt.Claims) (string, error)
	NewJTI     func() string
	Now        func() time.Time
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueResult carries a minted pair or the encode failure.
type IssueResult struct {
	Failure       FailureKind
	Err           error
	AccessToken   string
	RefreshToken  string
	AccessClaims  jwt.Claims
	RefreshClaims jwt.Claims
}

// RunIssue mints an access and a refresh token for subject. It touches no store.
func RunIssue(subject int64, deps IssueDeps) IssueResult {
	now := deps.Now()

	access, accessClaims, err := mint(subject, jwt.TypeAccess, now, deps.AccessTTL, deps)
	if err != nil {
		return IssueResult{Failure: FailureEncode, Err: err}
	}
	refresh, refreshClaims, err := mint(subject, jwt.TypeRefresh, now, deps.RefreshTTL, deps)
	if err != nil {
		return IssueResult{Failure: FailureEncode, Err: err}
	}

	return IssueResult{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}
}

// RunIssueAccess mints a single access token for subject.
func RunIssueAccess(subject int64, deps IssueDeps) IssueResult {
	access, claims, err := mint(subject, jwt.TypeAccess, deps.Now(), deps.AccessTTL, deps)
	if err != nil {
		return IssueResult{Failure: FailureEncode, Err: err}
	}
	return IssueResult{AccessToken: access, AccessClaims: claims}
}

func mint(subject int64, typ jwt.TokenType, now time.Time, ttl time.Duration, deps IssueDeps) (string, jwt.Claims, error) {
	claims := jwt.Claims{
		Subject:   subject,
		JTI:       deps.NewJTI(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Type:      typ,
	}.Normalize()

	token, err := deps.Encode(claims)
	if err != nil {
		return "", jwt.Claims{}, err
	}
	return token, claims, nil
}
