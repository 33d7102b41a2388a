// Package telemetry wires OpenTelemetry traces, metrics and logs plus Pyroscope
// profiling for the ledger service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config selects which signals go to a single OTLP/gRPC collector
type Config struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	// Insecure disables TLS to the collector
	Insecure bool

	Traces          bool
	SamplingRatio   float64
	Metrics         bool
	MetricsInterval time.Duration
	Logs            bool
}

// Providers holds one provider per signal. A provider whose signal is off is
// still usable and falls back to the global no-op implementation.
type Providers struct {
	Traces *TracerProvider
	Meters *MeterProvider
	Logs   *LoggerProvider
}

// Setup starts the exporters selected by cfg and installs them globally.
// A failure shuts down whatever already started.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{
		Traces: &TracerProvider{logger: logger},
		Meters: &MeterProvider{},
		Logs:   &LoggerProvider{},
	}
	if !cfg.Traces && !cfg.Metrics && !cfg.Logs {
		logger.Info("telemetry export disabled")
		return p, nil
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	signals := []struct {
		on    bool
		name  string
		start func(context.Context, Config, *resource.Resource) error
	}{
		{cfg.Traces, "traces", p.Traces.start},
		{cfg.Metrics, "metrics", p.Meters.start},
		{cfg.Logs, "logs", p.Logs.start},
	}
	for _, s := range signals {
		if !s.on {
			continue
		}
		if err := s.start(ctx, cfg, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("start %s export: %w", s.name, err)
		}
	}

	logger.Info("telemetry export started",
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("traces", cfg.Traces),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("metrics", cfg.Metrics),
		zap.Bool("logs", cfg.Logs),
	)
	return p, nil
}

// Shutdown flushes and stops every started provider, logs last so the other
// providers can still report their own shutdown.
func (p *Providers) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return errors.Join(
		p.Traces.shutdown(ctx),
		p.Meters.shutdown(ctx),
		p.Logs.shutdown(ctx),
	)
}

func newResource(serviceName, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
}

// sampler honors the parent's decision and samples roots at ratio
func sampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(ratio)
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}
