package flows

import (
	"context"

	"github.com/MrEthical07/authcore/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Decode != nil && s.deps.Issue.Encode != nil
}

func (s Service) Issue(subject int64) IssueResult {
	return RunIssue(subject, s.deps.Issue)
}

func (s Service) Validate(ctx context.Context, token string, want jwt.TokenType) ValidateResult {
	return RunValidate(ctx, token, want, s.deps.Validate)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Revoke(ctx context.Context, token string) RevokeResult {
	return RunRevoke(ctx, token, s.deps.Revoke)
}

func (s Service) Login(ctx context.Context, username, password string) LoginResult {
	return RunLogin(ctx, username, password, s.deps.Login)
}
