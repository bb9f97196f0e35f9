package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
	"go.uber.org/zap"
)

// Principal is the authenticated actor a token resolves to. It is owned by the
// [UserStore]; the engine never mutates it.
type Principal struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Active    bool       `json:"active"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	// PasswordHash is the encoded Argon2id hash. It is only read by Login.
	PasswordHash string `json:"-"`
}

// Usable reports whether the principal is active and not soft-deleted.
func (p Principal) Usable() bool {
	return p.Active && p.DeletedAt == nil
}

// TokenPair is the result of a successful issuance.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserStore is the read-only view of the external principal store.
//
// Implementations return an error matching [ErrUserNotFound] for a missing row.
// Any other error is treated as a store failure and surfaces as [ErrStoreUnavailable].
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*Principal, error)
	FindByUsername(ctx context.Context, username string) (*Principal, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink is an [AuditSink] that logs events through zap.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink logs audit events through logger under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricIssueSuccess              = MetricID(internalmetrics.MetricIssueSuccess)
	MetricIssueFailure              = MetricID(internalmetrics.MetricIssueFailure)
	MetricValidateSuccess           = MetricID(internalmetrics.MetricValidateSuccess)
	MetricValidateExpired           = MetricID(internalmetrics.MetricValidateExpired)
	MetricValidateMalformed         = MetricID(internalmetrics.MetricValidateMalformed)
	MetricValidateRevoked           = MetricID(internalmetrics.MetricValidateRevoked)
	MetricValidatePrincipalNotFound = MetricID(internalmetrics.MetricValidatePrincipalNotFound)
	MetricValidatePrincipalInactive = MetricID(internalmetrics.MetricValidatePrincipalInactive)
	MetricValidateTypeMismatch      = MetricID(internalmetrics.MetricValidateTypeMismatch)
	MetricValidateStoreUnavailable  = MetricID(internalmetrics.MetricValidateStoreUnavailable)
	MetricRefreshSuccess            = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure            = MetricID(internalmetrics.MetricRefreshFailure)
	MetricRevokeSuccess             = MetricID(internalmetrics.MetricRevokeSuccess)
	MetricRevokeFailure             = MetricID(internalmetrics.MetricRevokeFailure)
	MetricLoginSuccess              = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure              = MetricID(internalmetrics.MetricLoginFailure)
	MetricExistenceHit              = MetricID(internalmetrics.MetricExistenceHit)
	MetricExistenceMiss             = MetricID(internalmetrics.MetricExistenceMiss)
	MetricStoreRetry                = MetricID(internalmetrics.MetricStoreRetry)
	MetricValidateLatency           = MetricID(internalmetrics.MetricValidateLatency)
)

// Metrics holds atomic counters and the optional validate latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
