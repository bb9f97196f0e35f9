package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/cmd/authcore-server/app/options"
	"github.com/MrEthical07/authcore/internal/httpapi"
	authotel "github.com/MrEthical07/authcore/metrics/export/otel"
	authprom "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/userstore/postgres"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const envPrefix = "AUTHCORE"

var configFile string

// NewServerCommand creates the authcore-server root command.
func NewServerCommand() *cobra.Command {
	opts := options.NewServerOptions()

	cmd := &cobra.Command{
		Use:          "authcore-server",
		Short:        "Token authentication service",
		Long:         `authcore-server issues, validates, refreshes and revokes bearer tokens for principals stored in PostgreSQL, with revocations shared through Redis.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.Unmarshal(opts); err != nil {
				return fmt.Errorf("failed to unmarshal configuration: %w", err)
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, opts)
		},
		Args: cobra.NoArgs,
	}

	cobra.OnInitialize(func() { initConfig(cmd) })

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the authcore-server configuration file.")
	opts.AddFlags(cmd.PersistentFlags())

	return cmd
}

func initConfig(cmd *cobra.Command) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("authcore-server")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/authcore")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(cmd.PersistentFlags())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		}
	}
}

func run(ctx context.Context, opts *options.ServerOptions) error {
	started := time.Now()
	logger, err := opts.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := postgres.Open(ctx, opts.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(opts.Postgres.MaxOpenConns)

	users, err := postgres.New(db)
	if err != nil {
		return err
	}

	shared, err := newSharedStores(opts.Redis, cfg)
	if err != nil {
		return err
	}
	defer shared.close()

	builder := authcore.New().
		WithConfig(cfg).
		WithUserStore(users).
		WithLogger(logger.Named("engine"))
	shared.bind(builder)
	if opts.AuditLog {
		builder.WithAuditSink(authcore.NewZapSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	provider, err := opts.Metrics.NewMeterProvider(ctx)
	if err != nil {
		return err
	}
	if provider != nil {
		exporter, err := authotel.NewExporter(provider.Meter("github.com/MrEthical07/authcore"), engine)
		if err != nil {
			return err
		}
		defer func() {
			_ = exporter.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.HTTP.ShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("meter provider shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("exporting metrics through opentelemetry", zap.String("exporter", opts.Metrics.OTelExporter))
	}

	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:  logger.Named("http"),
		Metrics: authprom.NewCollector(engine).Handler(),
		Health: map[string]httpapi.HealthCheck{
			"redis":    shared.health,
			"postgres": db.PingContext,
		},
	})

	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", opts.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped", zap.Duration("uptime", time.Since(started)))
	return nil
}
