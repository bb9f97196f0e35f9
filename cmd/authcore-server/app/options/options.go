package options

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/spf13/pflag"
)

// ServerOptions contains every setting of authcore-server.
type ServerOptions struct {
	HTTP     *HTTPOptions     `json:"http" mapstructure:"http"`
	JWT      *JWTOptions      `json:"jwt" mapstructure:"jwt"`
	Redis    *RedisOptions    `json:"redis" mapstructure:"redis"`
	Postgres *PostgresOptions `json:"postgres" mapstructure:"postgres"`
	Store    *StoreOptions    `json:"store" mapstructure:"store"`
	Log      *LogOptions      `json:"log" mapstructure:"log"`
	Metrics  *MetricsOptions  `json:"metrics" mapstructure:"metrics"`
	// RejectInactive fails validation for disabled or soft-deleted principals.
	RejectInactive bool `json:"reject-inactive" mapstructure:"reject-inactive"`
	AuditLog       bool `json:"audit-log" mapstructure:"audit-log"`
}

type HTTPOptions struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

type JWTOptions struct {
	// Secret is the HS256 key. Prefix with "base64:" to pass raw bytes.
	Secret     string        `json:"secret" mapstructure:"secret"`
	Issuer     string        `json:"issuer" mapstructure:"issuer"`
	AccessTTL  time.Duration `json:"access-ttl" mapstructure:"access-ttl"`
	RefreshTTL time.Duration `json:"refresh-ttl" mapstructure:"refresh-ttl"`
	Leeway     time.Duration `json:"leeway" mapstructure:"leeway"`
}

const (
	RedisClientGoRedis = "go-redis"
	RedisClientRueidis = "rueidis"
)

type RedisOptions struct {
	// Client selects the Redis driver, go-redis or rueidis. Both share one key layout.
	Client   string   `json:"client" mapstructure:"client"`
	Addrs    []string `json:"addrs" mapstructure:"addrs"`
	Username string   `json:"username" mapstructure:"username"`
	Password string   `json:"password" mapstructure:"password"`
	DB       int      `json:"db" mapstructure:"db"`
}

type PostgresOptions struct {
	DSN          string `json:"dsn" mapstructure:"dsn"`
	MaxOpenConns int    `json:"max-open-conns" mapstructure:"max-open-conns"`
}

type StoreOptions struct {
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	RetryDelay   time.Duration `json:"retry-delay" mapstructure:"retry-delay"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	ExistenceTTL time.Duration `json:"existence-ttl" mapstructure:"existence-ttl"`
}

// NewServerOptions returns options populated with the engine defaults.
func NewServerOptions() *ServerOptions {
	def := authcore.DefaultConfig()
	return &ServerOptions{
		HTTP: &HTTPOptions{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		JWT: &JWTOptions{
			AccessTTL:  def.JWT.AccessTTL,
			RefreshTTL: def.JWT.RefreshTTL,
		},
		Redis: &RedisOptions{
			Client: RedisClientGoRedis,
			Addrs:  []string{"127.0.0.1:6379"},
		},
		Postgres: &PostgresOptions{
			MaxOpenConns: 20,
		},
		Store: &StoreOptions{
			Timeout:      def.Store.Timeout,
			RetryDelay:   def.Store.RetryDelay,
			MaxRetries:   def.Store.MaxRetries,
			ExistenceTTL: def.Existence.TTL,
		},
		Log:            NewLogOptions(),
		Metrics:        NewMetricsOptions(),
		RejectInactive: def.RejectInactive,
	}
}

// AddFlags binds the options to command-line flags.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTP.Addr, "http.addr", o.HTTP.Addr, "HTTP listen address.")
	fs.DurationVar(&o.HTTP.ReadTimeout, "http.read-timeout", o.HTTP.ReadTimeout, "HTTP read timeout.")
	fs.DurationVar(&o.HTTP.WriteTimeout, "http.write-timeout", o.HTTP.WriteTimeout, "HTTP write timeout.")
	fs.DurationVar(&o.HTTP.ShutdownTimeout, "http.shutdown-timeout", o.HTTP.ShutdownTimeout, "Graceful shutdown budget.")

	fs.StringVar(&o.JWT.Secret, "jwt.secret", o.JWT.Secret, "HS256 signing secret. Prefix with base64: for binary keys.")
	fs.StringVar(&o.JWT.Issuer, "jwt.issuer", o.JWT.Issuer, "Token issuer claim.")
	fs.DurationVar(&o.JWT.AccessTTL, "jwt.access-ttl", o.JWT.AccessTTL, "Access token lifetime.")
	fs.DurationVar(&o.JWT.RefreshTTL, "jwt.refresh-ttl", o.JWT.RefreshTTL, "Refresh token lifetime.")
	fs.DurationVar(&o.JWT.Leeway, "jwt.leeway", o.JWT.Leeway, "Tolerated clock skew when checking expiry.")

	fs.StringVar(&o.Redis.Client, "redis.client", o.Redis.Client, "Redis driver: go-redis or rueidis.")
	fs.StringSliceVar(&o.Redis.Addrs, "redis.addrs", o.Redis.Addrs, "Redis addresses. More than one selects cluster mode.")
	fs.StringVar(&o.Redis.Username, "redis.username", o.Redis.Username, "Redis ACL username.")
	fs.StringVar(&o.Redis.Password, "redis.password", o.Redis.Password, "Redis password.")
	fs.IntVar(&o.Redis.DB, "redis.db", o.Redis.DB, "Redis database number.")

	fs.StringVar(&o.Postgres.DSN, "postgres.dsn", o.Postgres.DSN, "PostgreSQL DSN of the users database.")
	fs.IntVar(&o.Postgres.MaxOpenConns, "postgres.max-open-conns", o.Postgres.MaxOpenConns, "Maximum open database connections.")

	fs.DurationVar(&o.Store.Timeout, "store.timeout", o.Store.Timeout, "Per-attempt timeout for store calls.")
	fs.DurationVar(&o.Store.RetryDelay, "store.retry-delay", o.Store.RetryDelay, "Delay before retrying a failed store call.")
	fs.IntVar(&o.Store.MaxRetries, "store.max-retries", o.Store.MaxRetries, "Retries after a failed store call.")
	fs.DurationVar(&o.Store.ExistenceTTL, "store.existence-ttl", o.Store.ExistenceTTL, "How long a resolved principal is remembered.")

	fs.BoolVar(&o.RejectInactive, "reject-inactive", o.RejectInactive, "Reject tokens of disabled or deleted principals.")
	fs.BoolVar(&o.AuditLog, "audit-log", o.AuditLog, "Write audit events to the log.")

	o.Log.AddFlags(fs)
	o.Metrics.AddFlags(fs)
}

// Validate checks the options that the engine does not check itself.
func (o *ServerOptions) Validate() error {
	var errs []error
	if o.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if o.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if o.Redis.Client != RedisClientGoRedis && o.Redis.Client != RedisClientRueidis {
		errs = append(errs, fmt.Errorf("redis.client %q is not one of go-redis, rueidis", o.Redis.Client))
	}
	if len(o.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs must list at least one address"))
	}
	if o.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Metrics.Validate()...)
	return errors.Join(errs...)
}

// Config builds the engine configuration.
func (o *ServerOptions) Config() (authcore.Config, error) {
	secret, err := decodeSecret(o.JWT.Secret)
	if err != nil {
		return authcore.Config{}, err
	}

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = secret
	cfg.JWT.Issuer = o.JWT.Issuer
	cfg.JWT.AccessTTL = o.JWT.AccessTTL
	cfg.JWT.RefreshTTL = o.JWT.RefreshTTL
	cfg.JWT.Leeway = o.JWT.Leeway
	cfg.Store.Timeout = o.Store.Timeout
	cfg.Store.RetryDelay = o.Store.RetryDelay
	cfg.Store.MaxRetries = o.Store.MaxRetries
	cfg.Existence.TTL = o.Store.ExistenceTTL
	cfg.RejectInactive = o.RejectInactive
	cfg.Audit.Enabled = o.AuditLog

	if err := cfg.Validate(); err != nil {
		return authcore.Config{}, err
	}
	return cfg, nil
}

func decodeSecret(s string) ([]byte, error) {
	raw, ok := strings.CutPrefix(s, "base64:")
	if !ok {
		return []byte(s), nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("jwt.secret: %w", err)
	}
	return b, nil
}
