package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	OTelExporterNone   = ""
	OTelExporterStdout = "stdout"
	OTelExporterOTLP   = "otlp"
)

// MetricsOptions configures OpenTelemetry metric export. The Prometheus
// endpoint is always served on /metrics.
type MetricsOptions struct {
	// OTelExporter selects the push exporter: empty (disabled), stdout or otlp.
	OTelExporter string        `json:"otel-exporter" mapstructure:"otel-exporter"`
	OTelEndpoint string        `json:"otel-endpoint" mapstructure:"otel-endpoint"`
	OTelInsecure bool          `json:"otel-insecure" mapstructure:"otel-insecure"`
	OTelInterval time.Duration `json:"otel-interval" mapstructure:"otel-interval"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		OTelEndpoint: "localhost:4317",
		OTelInterval: time.Minute,
	}
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.OTelExporter, "metrics.otel-exporter", o.OTelExporter, "OpenTelemetry metric exporter: stdout or otlp. Empty disables it.")
	fs.StringVar(&o.OTelEndpoint, "metrics.otel-endpoint", o.OTelEndpoint, "OTLP gRPC collector address.")
	fs.BoolVar(&o.OTelInsecure, "metrics.otel-insecure", o.OTelInsecure, "Connect to the OTLP collector without TLS.")
	fs.DurationVar(&o.OTelInterval, "metrics.otel-interval", o.OTelInterval, "How often metrics are pushed.")
}

func (o *MetricsOptions) Validate() []error {
	var errs []error
	switch o.OTelExporter {
	case OTelExporterNone, OTelExporterStdout:
	case OTelExporterOTLP:
		if o.OTelEndpoint == "" {
			errs = append(errs, errors.New("metrics.otel-endpoint is required for the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("metrics.otel-exporter %q is not one of stdout, otlp", o.OTelExporter))
	}
	if o.OTelExporter != OTelExporterNone && o.OTelInterval <= 0 {
		errs = append(errs, errors.New("metrics.otel-interval must be > 0"))
	}
	return errs
}

// NewMeterProvider returns a provider pushing through the configured exporter
// on a periodic reader, or nil when OpenTelemetry export is disabled. The
// caller shuts the provider down.
func (o *MetricsOptions) NewMeterProvider(ctx context.Context) (*sdkmetric.MeterProvider, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch o.OTelExporter {
	case OTelExporterNone:
		return nil, nil
	case OTelExporterStdout:
		exporter, err = stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
	case OTelExporterOTLP:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(o.OTelEndpoint)}
		if o.OTelInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown otel exporter %q", o.OTelExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s metric exporter: %w", o.OTelExporter, err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(o.OTelInterval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}
