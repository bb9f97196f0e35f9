package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process logger.
type LogOptions struct {
	// Level is one of debug, info, warn, error.
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	// File enables rotation through lumberjack when set. Empty logs to stderr.
	File       string `json:"file" mapstructure:"file"`
	MaxSize    int    `json:"max-size" mapstructure:"max-size"`
	MaxBackups int    `json:"max-backups" mapstructure:"max-backups"`
	MaxAge     int    `json:"max-age" mapstructure:"max-age"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

func NewLogOptions() *LogOptions {
	return &LogOptions{
		Level:      zapcore.InfoLevel.String(),
		Format:     "json",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
	}
}

func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log output `LEVEL`.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Log output `FORMAT`, json or console.")
	fs.StringVar(&o.File, "log.file", o.File, "Log file path. Empty writes to stderr.")
	fs.IntVar(&o.MaxSize, "log.max-size", o.MaxSize, "Maximum log file size in MB before rotation.")
	fs.IntVar(&o.MaxBackups, "log.max-backups", o.MaxBackups, "Maximum number of rotated files to keep.")
	fs.IntVar(&o.MaxAge, "log.max-age", o.MaxAge, "Maximum number of days to keep rotated files.")
	fs.BoolVar(&o.Compress, "log.compress", o.Compress, "Compress rotated files.")
}

func (o *LogOptions) Validate() []error {
	var errs []error
	if _, err := zapcore.ParseLevel(o.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if o.Format != "json" && o.Format != "console" {
		errs = append(errs, errors.New("log.format must be json or console"))
	}
	return errs
}

// NewLogger builds a zap logger writing to the configured file or stderr.
func (o *LogOptions) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if o.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if o.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSize,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAge,
			Compress:   o.Compress,
		})
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), nil
}
