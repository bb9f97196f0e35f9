package flows

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

var (
	errNotFound = errors.New("not found")
	errDown     = errors.New("store down")
)

type fakePrincipal struct {
	id     int64
	usable bool
}

func (p *fakePrincipal) Usable() bool { return p.usable }

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fakeDecode(claims map[string]jwt.Claims) func(string) (jwt.Claims, error) {
	return func(token string) (jwt.Claims, error) {
		switch token {
		case "expired":
			return jwt.Claims{}, &jwt.DecodeError{Kind: jwt.DecodeExpired}
		case "garbage":
			return jwt.Claims{}, &jwt.DecodeError{Kind: jwt.DecodeMalformed}
		}
		c, ok := claims[token]
		if !ok {
			return jwt.Claims{}, &jwt.DecodeError{Kind: jwt.DecodeMalformed}
		}
		return c, nil
	}
}

func testClaims() map[string]jwt.Claims {
	return map[string]jwt.Claims{
		"access":  {Subject: 42, JTI: "a-1", IssuedAt: baseTime, ExpiresAt: baseTime.Add(15 * time.Minute), Type: jwt.TypeAccess},
		"refresh": {Subject: 42, JTI: "r-1", IssuedAt: baseTime, ExpiresAt: baseTime.Add(24 * time.Hour), Type: jwt.TypeRefresh},
		"ghost":   {Subject: 7, JTI: "g-1", IssuedAt: baseTime, ExpiresAt: baseTime.Add(time.Hour), Type: jwt.TypeAccess},
	}
}

func validateDeps(revoked map[string]bool, users map[int64]*fakePrincipal) ValidateDeps {
	return ValidateDeps{
		Decode: fakeDecode(testClaims()),
		IsRevoked: func(_ context.Context, jti string) (bool, error) {
			return revoked[jti], nil
		},
		FindByID: func(_ context.Context, id int64) (Principal, error) {
			p, ok := users[id]
			if !ok {
				return nil, errNotFound
			}
			return p, nil
		},
		UserNotFound:   errNotFound,
		RejectInactive: true,
		Retry:          RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
	}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	var calls, retries int
	p := RetryPolicy{MaxRetries: 1, Delay: time.Millisecond, OnRetry: func() { retries++ }}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errDown
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
	if calls != 2 || retries != 1 {
		t.Fatalf("expected 2 calls and 1 retry, got %d and %d", calls, retries)
	}
}

func TestRetryPolicyReturnsLastErrorWhenExhausted(t *testing.T) {
	var calls int
	p := RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected errDown, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryPolicyDoesNotRetryPermanentErrors(t *testing.T) {
	var calls int
	p := RetryPolicy{
		MaxRetries: 3,
		Delay:      time.Millisecond,
		Permanent:  func(err error) bool { return errors.Is(err, errNotFound) },
	}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errNotFound
	})
	if !errors.Is(err, errNotFound) || calls != 1 {
		t.Fatalf("expected a single attempt returning errNotFound, got %d attempts and %v", calls, err)
	}
}

func TestRetryPolicyBoundsEachAttempt(t *testing.T) {
	p := RetryPolicy{Timeout: 5 * time.Millisecond, MaxRetries: 1, Delay: time.Millisecond}
	start := time.Now()
	err := p.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("attempts were not bounded: %s", elapsed)
	}
}

func TestRunValidateResolvesPrincipal(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: true}}
	res := RunValidate(context.Background(), "access", "", validateDeps(nil, users))
	if res.Failure != FailureNone {
		t.Fatalf("expected success, got %s (%v)", res.Failure, res.Err)
	}
	if res.Principal.(*fakePrincipal).id != 42 {
		t.Fatalf("unexpected principal %+v", res.Principal)
	}
	if res.Existence != ExistenceSkipped {
		t.Fatalf("expected existence skipped without a cache, got %v", res.Existence)
	}
}

func TestRunValidateDecodeFailures(t *testing.T) {
	deps := validateDeps(nil, nil)
	if res := RunValidate(context.Background(), "expired", "", deps); res.Failure != FailureExpired {
		t.Fatalf("expected expired, got %s", res.Failure)
	}
	if res := RunValidate(context.Background(), "garbage", "", deps); res.Failure != FailureMalformed {
		t.Fatalf("expected malformed, got %s", res.Failure)
	}
}

func TestRunValidateChecksRevocationBeforeLookup(t *testing.T) {
	deps := validateDeps(map[string]bool{"a-1": true}, nil)
	deps.FindByID = func(context.Context, int64) (Principal, error) {
		t.Fatal("principal must not be resolved for a revoked token")
		return nil, nil
	}
	if res := RunValidate(context.Background(), "access", "", deps); res.Failure != FailureRevoked {
		t.Fatalf("expected revoked, got %s", res.Failure)
	}
}

func TestRunValidateTypeMismatchBeforeStores(t *testing.T) {
	deps := validateDeps(nil, nil)
	deps.IsRevoked = func(context.Context, string) (bool, error) {
		t.Fatal("revocation store must not be consulted for a wrong token type")
		return false, nil
	}
	if res := RunValidate(context.Background(), "access", jwt.TypeRefresh, deps); res.Failure != FailureTypeMismatch {
		t.Fatalf("expected type mismatch, got %s", res.Failure)
	}
}

func TestRunValidatePrincipalOutcomes(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: false}}

	deps := validateDeps(nil, users)
	if res := RunValidate(context.Background(), "ghost", "", deps); res.Failure != FailurePrincipalNotFound {
		t.Fatalf("expected principal not found, got %s", res.Failure)
	}
	if res := RunValidate(context.Background(), "access", "", deps); res.Failure != FailurePrincipalInactive {
		t.Fatalf("expected inactive, got %s", res.Failure)
	}

	deps.RejectInactive = false
	res := RunValidate(context.Background(), "access", "", deps)
	if res.Failure != FailureNone || res.Principal.Usable() {
		t.Fatalf("expected inactive principal to be returned, got %s", res.Failure)
	}
}

func TestRunValidateStoreOutageIsDistinct(t *testing.T) {
	var revokedCalls int32
	deps := validateDeps(nil, nil)
	deps.IsRevoked = func(context.Context, string) (bool, error) {
		atomic.AddInt32(&revokedCalls, 1)
		return false, errDown
	}
	res := RunValidate(context.Background(), "access", "", deps)
	if res.Failure != FailureStoreUnavailable || !errors.Is(res.Err, errDown) {
		t.Fatalf("expected store unavailable, got %s (%v)", res.Failure, res.Err)
	}
	if got := atomic.LoadInt32(&revokedCalls); got != 2 {
		t.Fatalf("expected one retry, got %d calls", got)
	}

	deps = validateDeps(nil, nil)
	deps.FindByID = func(context.Context, int64) (Principal, error) { return nil, errDown }
	if res := RunValidate(context.Background(), "access", "", deps); res.Failure != FailureStoreUnavailable {
		t.Fatalf("expected store unavailable from user store, got %s", res.Failure)
	}
}

func TestRunValidateExistenceCacheIsOnlyAHint(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: true}}
	cached := map[int64]bool{}
	var lookups, remembers int

	deps := validateDeps(nil, users)
	find := deps.FindByID
	deps.FindByID = func(ctx context.Context, id int64) (Principal, error) {
		lookups++
		return find(ctx, id)
	}
	deps.Probe = func(_ context.Context, id int64) (bool, error) { return cached[id], nil }
	deps.Remember = func(_ context.Context, id int64) error {
		remembers++
		cached[id] = true
		return nil
	}

	first := RunValidate(context.Background(), "access", "", deps)
	second := RunValidate(context.Background(), "access", "", deps)
	if first.Existence != ExistenceMiss || second.Existence != ExistenceHit {
		t.Fatalf("expected miss then hit, got %v then %v", first.Existence, second.Existence)
	}
	if lookups != 2 {
		t.Fatalf("a cache hit must still confirm against the store, got %d lookups", lookups)
	}
	if remembers != 1 {
		t.Fatalf("expected a single cache population, got %d", remembers)
	}
}

func TestRunValidateCacheFailureDoesNotFail(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: true}}
	var reported int
	deps := validateDeps(nil, users)
	deps.Probe = func(context.Context, int64) (bool, error) { return false, errDown }
	deps.Remember = func(context.Context, int64) error { return errDown }
	deps.CacheError = func(error) { reported++ }

	res := RunValidate(context.Background(), "access", "", deps)
	if res.Failure != FailureNone {
		t.Fatalf("cache outage must not fail validation, got %s", res.Failure)
	}
	if reported != 2 {
		t.Fatalf("expected both cache failures reported, got %d", reported)
	}
}

func TestRunValidateBoundsSlowExistenceCache(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: true}}
	var reported, lookups int
	deps := validateDeps(nil, users)
	deps.Retry.Timeout = 20 * time.Millisecond
	find := deps.FindByID
	deps.FindByID = func(ctx context.Context, id int64) (Principal, error) {
		lookups++
		return find(ctx, id)
	}
	deps.Probe = func(ctx context.Context, _ int64) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}
	deps.Remember = func(ctx context.Context, _ int64) error {
		<-ctx.Done()
		return ctx.Err()
	}
	deps.CacheError = func(err error) {
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected a deadline error from the cache, got %v", err)
		}
		reported++
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	res := RunValidate(ctx, "access", "", deps)
	elapsed := time.Since(start)

	if res.Failure != FailureNone {
		t.Fatalf("a hung cache must fall through to the store, got %s", res.Failure)
	}
	if res.Existence != ExistenceMiss {
		t.Fatalf("a timed out cache lookup counts as a miss, got %v", res.Existence)
	}
	if lookups != 1 || reported != 2 {
		t.Fatalf("expected 1 lookup and 2 reported cache failures, got %d and %d", lookups, reported)
	}
	if elapsed > time.Second {
		t.Fatalf("cache calls were not bounded by the store timeout: %s", elapsed)
	}
}

func TestRunValidateBoundsSlowUserStore(t *testing.T) {
	var lookups atomic.Int32
	deps := validateDeps(nil, nil)
	deps.Retry.Timeout = 20 * time.Millisecond
	deps.FindByID = func(ctx context.Context, _ int64) (Principal, error) {
		lookups.Add(1)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	res := RunValidate(context.Background(), "access", "", deps)
	elapsed := time.Since(start)

	if res.Failure != FailureStoreUnavailable {
		t.Fatalf("expected store unavailable, got %s", res.Failure)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline as cause, got %v", res.Err)
	}
	if got := lookups.Load(); got != 2 {
		t.Fatalf("expected one retry after the first timeout, got %d attempts", got)
	}
	if elapsed > time.Second {
		t.Fatalf("user store lookups were not bounded: %s", elapsed)
	}
}

func issueDeps() IssueDeps {
	var n int64
	return IssueDeps{
		Encode: func(c jwt.Claims) (string, error) { return string(c.Type) + ":" + c.JTI, nil },
		NewJTI: func() string {
			n++
			return "jti-" + strconv.FormatInt(n, 10)
		},
		Now:        func() time.Time { return baseTime },
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func TestRunIssueMintsDistinctTokens(t *testing.T) {
	res := RunIssue(42, issueDeps())
	if res.Failure != FailureNone {
		t.Fatalf("issue failed: %v", res.Err)
	}
	if res.AccessClaims.JTI == res.RefreshClaims.JTI {
		t.Fatal("access and refresh tokens must carry distinct jti values")
	}
	if res.AccessClaims.Type != jwt.TypeAccess || res.RefreshClaims.Type != jwt.TypeRefresh {
		t.Fatalf("unexpected types %s/%s", res.AccessClaims.Type, res.RefreshClaims.Type)
	}
	if !res.AccessClaims.ExpiresAt.Equal(baseTime.Add(15*time.Minute)) ||
		!res.RefreshClaims.ExpiresAt.Equal(baseTime.Add(7*24*time.Hour)) {
		t.Fatalf("unexpected expiries %s/%s", res.AccessClaims.ExpiresAt, res.RefreshClaims.ExpiresAt)
	}
}

func TestRunIssueEncodeFailure(t *testing.T) {
	deps := issueDeps()
	deps.Encode = func(jwt.Claims) (string, error) { return "", errors.New("no key") }
	if res := RunIssue(1, deps); res.Failure != FailureEncode {
		t.Fatalf("expected encode failure, got %s", res.Failure)
	}
}

func TestRunRefreshRequiresRefreshType(t *testing.T) {
	users := map[int64]*fakePrincipal{42: {id: 42, usable: true}}
	deps := RefreshDeps{Validate: validateDeps(nil, users), Issue: issueDeps()}

	if res := RunRefresh(context.Background(), "access", deps); res.Failure != FailureTypeMismatch {
		t.Fatalf("expected type mismatch, got %s", res.Failure)
	}
	if res := RunRefresh(context.Background(), "expired", deps); res.Failure != FailureExpired {
		t.Fatalf("expected expired, got %s", res.Failure)
	}

	res := RunRefresh(context.Background(), "refresh", deps)
	if res.Failure != FailureNone {
		t.Fatalf("refresh failed: %s %v", res.Failure, res.Err)
	}
	if res.AccessClaims.Subject != 42 || res.AccessClaims.Type != jwt.TypeAccess {
		t.Fatalf("unexpected access claims %+v", res.AccessClaims)
	}
}

func TestRunRevoke(t *testing.T) {
	stored := map[string]time.Duration{}
	deps := RevokeDeps{
		Decode: fakeDecode(testClaims()),
		Revoke: func(_ context.Context, jti string, ttl time.Duration) error {
			stored[jti] = ttl
			return nil
		},
		Now:   func() time.Time { return baseTime.Add(5 * time.Minute) },
		Retry: RetryPolicy{Delay: time.Millisecond},
	}

	res := RunRevoke(context.Background(), "access", deps)
	if res.Failure != FailureNone {
		t.Fatalf("revoke failed: %s", res.Failure)
	}
	if stored["a-1"] != 10*time.Minute || res.TTL != 10*time.Minute {
		t.Fatalf("ttl must equal expiry minus now, got %s", stored["a-1"])
	}

	if res := RunRevoke(context.Background(), "expired", deps); res.Failure != FailureExpired {
		t.Fatalf("expected expired, got %s", res.Failure)
	}

	deps.Now = func() time.Time { return baseTime.Add(15 * time.Minute) }
	delete(stored, "a-1")
	if res := RunRevoke(context.Background(), "access", deps); res.Failure != FailureExpired {
		t.Fatalf("expected expired at the boundary, got %s", res.Failure)
	}
	if _, ok := stored["a-1"]; ok {
		t.Fatal("no entry may be stored with a non-positive ttl")
	}
}

func TestRunLogin(t *testing.T) {
	records := map[string]LoginRecord{
		"alice": {Principal: &fakePrincipal{id: 1, usable: true}, ID: 1, PasswordHash: "h:Secret123"},
		"bob":   {Principal: &fakePrincipal{id: 2, usable: false}, ID: 2, PasswordHash: "h:Secret123"},
	}
	deps := LoginDeps{
		FindByUsername: func(_ context.Context, username string) (LoginRecord, error) {
			r, ok := records[username]
			if !ok {
				return LoginRecord{}, errNotFound
			}
			return r, nil
		},
		VerifyPassword: func(password, hash string) (bool, error) { return hash == "h:"+password, nil },
		UserNotFound:   errNotFound,
		Retry:          RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
		Issue:          issueDeps(),
	}

	tests := []struct {
		name     string
		username string
		password string
		want     FailureKind
		reason   string
	}{
		{name: "success", username: "alice", password: "Secret123", want: FailureNone},
		{name: "empty password", username: "alice", password: "", want: FailureInvalidCredentials, reason: "empty_credentials"},
		{name: "unknown user", username: "carol", password: "Secret123", want: FailureInvalidCredentials, reason: "user_not_found"},
		{name: "wrong password", username: "alice", password: "nope", want: FailureInvalidCredentials, reason: "password_mismatch"},
		{name: "disabled account", username: "bob", password: "Secret123", want: FailurePrincipalInactive, reason: "account_disabled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := RunLogin(context.Background(), tc.username, tc.password, deps)
			if res.Failure != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, res.Failure)
			}
			if res.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, res.Reason)
			}
			if tc.want == FailureNone && (res.Issued.AccessToken == "" || res.Issued.RefreshToken == "") {
				t.Fatal("expected a token pair")
			}
		})
	}
}

func TestRunLoginStoreOutage(t *testing.T) {
	deps := LoginDeps{
		FindByUsername: func(context.Context, string) (LoginRecord, error) { return LoginRecord{}, errDown },
		VerifyPassword: func(string, string) (bool, error) { return true, nil },
		UserNotFound:   errNotFound,
		Retry:          RetryPolicy{Delay: time.Millisecond},
		Issue:          issueDeps(),
	}
	res := RunLogin(context.Background(), "alice", "Secret123", deps)
	if res.Failure != FailureStoreUnavailable {
		t.Fatalf("expected store unavailable, got %s", res.Failure)
	}
}
