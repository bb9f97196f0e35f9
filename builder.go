package authcore

import (
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users       UserStore
	auditSink   AuditSink
	logger      *zap.Logger
	revocations store.RevocationStore
	existence   store.ExistenceCache
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the revocation store and existence cache with client. Without
// it, and without explicit stores, the engine falls back to in-process stores
// that only honour cross-request revocation within a single instance.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for background conditions only. Request
// outcomes are returned as errors, never logged.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRevocationStore overrides the revocation store chosen from WithRedis.
func (b *Builder) WithRevocationStore(s store.RevocationStore) *Builder {
	b.revocations = s
	return b
}

// WithExistenceCache overrides the existence cache chosen from WithRedis.
func (b *Builder) WithExistenceCache(c store.ExistenceCache) *Builder {
	b.existence = c
	return b
}

// WithNow replaces the clock. Intended for tests.
func (b *Builder) WithNow(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. Every failure
// matches [ErrConfiguration].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, configError("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, configError("user store required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config: cloneConfig(cfg),
		users:  b.users,
		logger: logger,
		now:    now,
		policy: password.Policy{MinLength: cfg.Password.MinLength},
	}

	// -------- STORES --------
	switch {
	case b.revocations != nil:
		engine.revocations = b.revocations
	case b.redis != nil:
		engine.revocations = store.NewRedisRevocationStore(b.redis, cfg.Revocation.Prefix)
	default:
		logger.Warn("no shared revocation store configured; revocations are visible to this instance only")
		local := store.NewMemoryRevocationStore(now)
		engine.revocations = local
		engine.closers = append(engine.closers, local.StartJanitor(cfg.Revocation.SweepInterval))
	}

	if cfg.Existence.Enabled {
		switch {
		case b.existence != nil:
			engine.existence = b.existence
		case b.redis != nil:
			engine.existence = store.NewRedisExistenceCache(b.redis, cfg.Existence.Prefix, cfg.Existence.TTL)
		default:
			local, err := store.NewMemoryExistenceCache(cfg.Existence.LocalCapacity, cfg.Existence.TTL)
			if err != nil {
				return nil, configError("%v", err)
			}
			engine.existence = local
			engine.closers = append(engine.closers, local.Close)
		}
	}

	// -------- CRYPTO --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, configError("%v", err)
	}
	engine.hasher = hasher

	codec, err := jwt.NewCodec(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, configError("%v", err)
	}
	engine.codec = codec

	// -------- OBSERVABILITY --------
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)

	engine.flow = flows.New(engine.buildFlowDeps())

	b.built = true
	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	retry := flows.RetryPolicy{
		Timeout:    e.config.Store.Timeout,
		Delay:      e.config.Store.RetryDelay,
		MaxRetries: uint64(e.config.Store.MaxRetries),
		OnRetry:    func() { e.metricInc(MetricStoreRetry) },
	}

	issue := flows.IssueDeps{
		Encode:     e.codec.Encode,
		NewJTI:     uuid.NewString,
		Now:        e.now,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
	}

	validate := flows.ValidateDeps{
		Decode:         e.codec.Decode,
		IsRevoked:      e.revocations.IsRevoked,
		FindByID:       e.findPrincipal,
		UserNotFound:   ErrUserNotFound,
		RejectInactive: e.config.RejectInactive,
		Retry:          retry,
		CacheError: func(err error) {
			e.logger.Warn("existence cache unavailable", zap.Error(err))
		},
	}
	if e.existence != nil {
		validate.Probe = e.existence.Probe
		validate.Remember = e.existence.Remember
	}

	return flows.Deps{
		Issue:    issue,
		Validate: validate,
		Refresh: flows.RefreshDeps{
			Validate: validate,
			Issue:    issue,
		},
		Revoke: flows.RevokeDeps{
			Decode: e.codec.Decode,
			Revoke: e.revocations.Revoke,
			Now:    e.now,
			Retry:  retry,
		},
		Login: flows.LoginDeps{
			FindByUsername: e.findLoginRecord,
			VerifyPassword: e.hasher.Verify,
			UserNotFound:   ErrUserNotFound,
			Retry:          retry,
			Issue:          issue,
		},
	}
}
