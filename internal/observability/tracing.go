package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "taskroom"

// TracingConfig configures NewTracerProvider.
type TracingConfig struct {
	Endpoint       string // OTLP HTTP endpoint, e.g. "localhost:4318"; empty disables export
	ServiceVersion string
	Insecure       bool
	SampleRate     float64
}

// Tracing wraps the tracer provider and its lifecycle.
type Tracing struct {
	tp       *sdktrace.TracerProvider
	provider trace.TracerProvider
}

// NewTracing builds a tracer provider and installs it, with W3C trace-context
// propagation, as the global provider.
// PRE: none
// POST: With an empty endpoint a no-op provider is installed and no exporter runs
func NewTracing(ctx context.Context, cfg TracingConfig) (*Tracing, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Endpoint == "" {
		np := noop.NewTracerProvider()
		otel.SetTracerProvider(np)
		return &Tracing{provider: np}, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceNameKey.String(ServiceName))}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersionKey.String(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	return &Tracing{tp: tp, provider: tp}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Provider returns the installed tracer provider.
func (t *Tracing) Provider() trace.TracerProvider {
	return t.provider
}

// Enabled reports whether spans are exported.
func (t *Tracing) Enabled() bool {
	return t.tp != nil
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}
