package authcore

import (
	"errors"
	"strings"

	"github.com/MrEthical07/authcore/password"
)

var (
	// ErrValidationFailed reports rejected input such as a weak password.
	ErrValidationFailed = errors.New("validation failed")
	// ErrExpired reports a correctly signed token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed reports a token that is structurally invalid, tampered with or signed with the wrong key.
	ErrMalformed = errors.New("token malformed")
	// ErrRevoked reports a token whose jti has been revoked.
	ErrRevoked = errors.New("token revoked")
	// ErrPrincipalNotFound reports a token whose subject no longer resolves.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPrincipalInactive reports a disabled or soft-deleted principal.
	ErrPrincipalInactive = errors.New("principal inactive")
	// ErrStoreUnavailable reports a revocation store, existence cache or user store
	// that failed or timed out. It is transient and distinct from every authentication failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConfiguration reports configuration that prevents the engine from starting.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrTokenTypeMismatch reports an access token used where a refresh token is required, or the reverse.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrInvalidCredentials reports an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserStore implementations for a missing row.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoCredential reports a request that presented no bearer token.
	ErrNoCredential = errors.New("no credentials provided")
	// ErrMalformedHeader reports an authorization header that is not exactly "Bearer <token>".
	ErrMalformedHeader = errors.New("malformed authorization header")
	// ErrEngineNotReady is returned by a zero or nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind is a coarse classification of engine errors for callers that branch on
// one value instead of a chain of errors.Is checks.
type Kind int

const (
	KindNone Kind = iota
	KindValidationFailed
	KindExpired
	KindMalformed
	KindRevoked
	KindPrincipalNotFound
	KindPrincipalInactive
	KindStoreUnavailable
	KindConfiguration
	KindTokenTypeMismatch
	KindInvalidCredentials
	KindNoCredential
	KindMalformedHeader
	KindInternal
)

var kindNames = [...]string{
	KindNone:               "none",
	KindValidationFailed:   "validation_failed",
	KindExpired:            "expired",
	KindMalformed:          "malformed",
	KindRevoked:            "revoked",
	KindPrincipalNotFound:  "principal_not_found",
	KindPrincipalInactive:  "principal_inactive",
	KindStoreUnavailable:   "store_unavailable",
	KindConfiguration:      "configuration",
	KindTokenTypeMismatch:  "token_type_mismatch",
	KindInvalidCredentials: "invalid_credentials",
	KindNoCredential:       "no_credential",
	KindMalformedHeader:    "malformed_header",
	KindInternal:           "internal",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Retryable reports whether an operation failing with this kind may succeed if repeated.
func (k Kind) Retryable() bool {
	return k == KindStoreUnavailable
}

// KindOf classifies err. A nil error is KindNone; an error matching no sentinel is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrExpired):
		return KindExpired
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrRevoked):
		return KindRevoked
	case errors.Is(err, ErrPrincipalNotFound):
		return KindPrincipalNotFound
	case errors.Is(err, ErrPrincipalInactive):
		return KindPrincipalInactive
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTokenTypeMismatch):
		return KindTokenTypeMismatch
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrNoCredential):
		return KindNoCredential
	case errors.Is(err, ErrMalformedHeader):
		return KindMalformedHeader
	default:
		return KindInternal
	}
}

// PolicyError carries every password rule a candidate violated.
type PolicyError struct {
	Violations []password.Violation
}

func (e *PolicyError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidationFailed.Error()
	}
	codes := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, v.Code)
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(codes, ", ")
}

func (e *PolicyError) Unwrap() error {
	return ErrValidationFailed
}
