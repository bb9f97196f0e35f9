package options

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func validOptions() *ServerOptions {
	o := NewServerOptions()
	o.JWT.Secret = "0123456789abcdef0123456789abcdef"
	o.Postgres.DSN = "postgres://authcore@localhost/authcore"
	return o
}

func TestValidate(t *testing.T) {
	require.NoError(t, validOptions().Validate())

	o := NewServerOptions()
	err := o.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "jwt.secret")
	require.Contains(t, err.Error(), "postgres.dsn")

	o = validOptions()
	o.Log.Level = "loud"
	require.Error(t, o.Validate())

	o = validOptions()
	o.Redis.Client = "jedis"
	require.ErrorContains(t, o.Validate(), "redis.client")

	o = validOptions()
	o.Redis.Client = RedisClientRueidis
	require.NoError(t, o.Validate())

	o = validOptions()
	o.Metrics.OTelExporter = "zipkin"
	require.ErrorContains(t, o.Validate(), "metrics.otel-exporter")

	o = validOptions()
	o.Metrics.OTelExporter = OTelExporterOTLP
	o.Metrics.OTelEndpoint = ""
	require.ErrorContains(t, o.Validate(), "metrics.otel-endpoint")
}

func TestNewMeterProvider(t *testing.T) {
	o := NewMetricsOptions()
	provider, err := o.NewMeterProvider(context.Background())
	require.NoError(t, err)
	require.Nil(t, provider)

	o.OTelExporter = OTelExporterStdout
	o.OTelInterval = time.Hour
	provider, err = o.NewMeterProvider(context.Background())
	require.NoError(t, err)
	require.NotNil(t, provider)
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestConfig(t *testing.T) {
	o := validOptions()
	o.JWT.AccessTTL = 5 * time.Minute
	o.RejectInactive = false

	cfg, err := o.Config()
	require.NoError(t, err)
	require.Equal(t, []byte(o.JWT.Secret), cfg.JWT.PrivateKey)
	require.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	require.False(t, cfg.RejectInactive)

	o.JWT.Secret = "base64:AAECAw=="
	cfg, err = o.Config()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3}, cfg.JWT.PrivateKey)

	o.JWT.Secret = "base64:%%%"
	_, err = o.Config()
	require.Error(t, err)

	o = validOptions()
	o.JWT.RefreshTTL = time.Minute
	_, err = o.Config()
	require.True(t, errors.Is(err, authcore.ErrConfiguration))
}

func TestAddFlags(t *testing.T) {
	o := NewServerOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--http.addr=:9090",
		"--jwt.access-ttl=1m",
		"--redis.addrs=a:6379,b:6379",
		"--store.max-retries=3",
		"--log.level=debug",
		"--redis.client=rueidis",
		"--metrics.otel-exporter=otlp",
		"--metrics.otel-insecure",
	}))
	require.Equal(t, ":9090", o.HTTP.Addr)
	require.Equal(t, time.Minute, o.JWT.AccessTTL)
	require.Equal(t, []string{"a:6379", "b:6379"}, o.Redis.Addrs)
	require.Equal(t, 3, o.Store.MaxRetries)
	require.Equal(t, "debug", o.Log.Level)
	require.Equal(t, RedisClientRueidis, o.Redis.Client)
	require.Equal(t, OTelExporterOTLP, o.Metrics.OTelExporter)
	require.True(t, o.Metrics.OTelInsecure)
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	o := NewLogOptions()
	o.File = filepath.Join(t.TempDir(), "authcore.log")

	logger, err := o.NewLogger()
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	require.FileExists(t, o.File)
}
