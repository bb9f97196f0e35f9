package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

// Validator is the part of *authcore.Engine the guards depend on.
type Validator interface {
	ValidateAccess(ctx context.Context, token string) (*authcore.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by Guard or Optional.
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p in ctx. Handlers normally rely on Guard instead.
func WithPrincipal(ctx context.Context, p *authcore.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard rejects every request that does not carry a valid access token.
func Guard(v Validator) func(http.Handler) http.Handler {
	return authenticate(v, false)
}

// Optional authenticates the request when an Authorization header is present
// and passes it through anonymously when it is not.
func Optional(v Validator) func(http.Handler) http.Handler {
	return authenticate(v, true)
}

func authenticate(v Validator, allowAnonymous bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				WriteError(w, authcore.ErrEngineNotReady)
				return
			}

			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				if allowAnonymous && errors.Is(err, authcore.ErrNoCredential) {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, err)
				return
			}

			ctx := RequestContext(r)
			principal, err := v.ValidateAccess(ctx, token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequestContext returns r's context carrying the client IP and user agent
// for audit records.
func RequestContext(r *http.Request) context.Context {
	ctx := authcore.WithClientIP(r.Context(), ClientIP(r))
	if ua := r.UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return ctx
}
