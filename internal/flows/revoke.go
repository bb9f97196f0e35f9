package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// RevokeDeps captures revocation dependencies.
type RevokeDeps struct {
	Decode func(string) (jwt.Claims, error)
	Revoke func(context.Context, string, time.Duration) error
	Now    func() time.Time
	Retry  RetryPolicy
}

// RevokeResult reports the revoked claims and the ttl stored for them.
type RevokeResult struct {
	Failure FailureKind
	Err     error
	Claims  jwt.Claims
	TTL     time.Duration
}

// RunRevoke records token's jti as revoked until the token's own expiry.
// An expired token is reported as such and nothing is stored.
func RunRevoke(ctx context.Context, token string, deps RevokeDeps) RevokeResult {
	claims, err := deps.Decode(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return RevokeResult{Failure: FailureExpired, Err: err}
		}
		return RevokeResult{Failure: FailureMalformed, Err: err}
	}

	ttl := claims.ExpiresAt.Sub(deps.Now())
	if ttl <= 0 {
		return RevokeResult{Failure: FailureExpired, Claims: claims}
	}

	err = deps.Retry.Do(ctx, func(ctx context.Context) error {
		return deps.Revoke(ctx, claims.JTI, ttl)
	})
	if err != nil {
		return RevokeResult{Failure: FailureStoreUnavailable, Err: err, Claims: claims}
	}
	return RevokeResult{Claims: claims, TTL: ttl}
}
