package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/jwt"
)

const (
	auditEventTokenIssued    = "token_issued"
	auditEventTokenValidated = "token_validated"
	auditEventTokenRefreshed = "token_refreshed"
	auditEventTokenRevoked   = "token_revoked"
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID int64,
	claims jwt.Claims,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		TokenID:     claims.JTI,
		TokenType:   string(claims.Type),
		IP:          clientIPFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if err != nil {
		event.Error = KindOf(err).String()
	}

	e.audit.Emit(ctx, event)
}
