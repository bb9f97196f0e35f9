package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/authcore"
)

type fakeValidator struct {
	principals map[string]*authcore.Principal
	err        error
	lastCtx    context.Context
}

func (f *fakeValidator) ValidateAccess(ctx context.Context, token string) (*authcore.Principal, error) {
	f.lastCtx = ctx
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.principals[token]
	if !ok {
		return nil, authcore.ErrMalformed
	}
	return p, nil
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = fmt.Fprintf(w, "principal:%d", p.ID)
	})
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestGuard(t *testing.T) {
	v := &fakeValidator{principals: map[string]*authcore.Principal{
		"good": {ID: 42, Username: "alice", Active: true},
	}}
	h := Guard(v)(principalEcho())

	rec := serve(h, "Bearer good")
	if rec.Code != http.StatusOK || rec.Body.String() != "principal:42" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	for _, header := range []string{"", "Bearer", "Bearer a b", "Token good", "Bearer bad"} {
		rec := serve(h, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Fatalf("header %q: WWW-Authenticate = %q", header, got)
		}
		if resp := decodeEnvelope(t, rec); resp.ErrorCode != CodeNotAuthenticated {
			t.Fatalf("header %q: error code = %q", header, resp.ErrorCode)
		}
	}
}

func TestOptional(t *testing.T) {
	v := &fakeValidator{principals: map[string]*authcore.Principal{
		"good": {ID: 7, Active: true},
	}}
	h := Optional(v)(principalEcho())

	if rec := serve(h, ""); rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("anonymous request: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(h, "Bearer good"); rec.Body.String() != "principal:7" {
		t.Fatalf("authenticated request: %q", rec.Body.String())
	}
	if rec := serve(h, "Bearer x y"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header must still fail, got %d", rec.Code)
	}
	if rec := serve(h, "Bearer bad"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token must still fail, got %d", rec.Code)
	}
}

func TestGuardStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{authcore.ErrExpired, http.StatusUnauthorized, CodeNotAuthenticated},
		{authcore.ErrRevoked, http.StatusUnauthorized, CodeNotAuthenticated},
		{authcore.ErrTokenTypeMismatch, http.StatusUnauthorized, CodeNotAuthenticated},
		{authcore.ErrPrincipalNotFound, http.StatusUnauthorized, CodeNotAuthenticated},
		{authcore.ErrPrincipalInactive, http.StatusForbidden, CodeAccountDisabled},
		{fmt.Errorf("%w: i/o timeout", authcore.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeGeneric},
	}

	for _, tt := range tests {
		h := Guard(&fakeValidator{err: tt.err})(principalEcho())
		rec := serve(h, "Bearer anything")
		if rec.Code != tt.status {
			t.Fatalf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		if resp := decodeEnvelope(t, rec); resp.ErrorCode != tt.code {
			t.Fatalf("%v: code = %q, want %q", tt.err, resp.ErrorCode, tt.code)
		}
	}
}

func TestGuardPassesRequestInfo(t *testing.T) {
	v := &fakeValidator{principals: map[string]*authcore.Principal{"good": {ID: 1}}}
	h := Guard(v)(principalEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := authcore.ClientIPFromContext(v.lastCtx); got != "198.51.100.4" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestErrorResponsePolicyViolations(t *testing.T) {
	r := &authcore.PolicyError{}
	status, resp := ErrorResponse(r)
	if status != http.StatusBadRequest || resp.ErrorCode != CodeWeakPassword {
		t.Fatalf("policy error mapped to %d %q", status, resp.ErrorCode)
	}

	status, resp = ErrorResponse(authcore.ErrInvalidCredentials)
	if status != http.StatusUnauthorized || resp.ErrorCode != CodeInvalidCredentials {
		t.Fatalf("invalid credentials mapped to %d %q", status, resp.ErrorCode)
	}
}
