// Package telemetry configures OpenTelemetry tracing for benchmark runs.
// Without an endpoint every span goes to a no-op tracer.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/duration"
)

// InstrumentationName names the tracer used for run spans.
const InstrumentationName = "github.com/wafbench/wbt"

// Options configures tracing.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "wbt").
	ServiceName string

	// Insecure disables TLS to the collector.
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ConnectionTimeout bounds exporter setup (default: 10s).
	ConnectionTimeout time.Duration

	// Exporter overrides the OTLP exporter. Spans are exported
	// synchronously, which suits tests.
	Exporter sdktrace.SpanExporter

	// Global also installs the provider as the otel global.
	Global bool
}

// Provider owns the tracer provider for the process.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Noop returns a provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}
}

// New builds a provider from opts. With neither an endpoint nor an
// exporter it returns Noop().
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Endpoint == "" && opts.Exporter == nil {
		return Noop(), nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = duration.ExporterConnect
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "benchmark"),
	)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if opts.Exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(opts.Exporter))
	} else {
		exporter, err := newOTLPExporter(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	if opts.Global {
		otel.SetTracerProvider(tp)
	}
	return &Provider{sdk: tp, tracer: tp.Tracer(InstrumentationName)}, nil
}

func newOTLPExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}

// Tracer returns the run tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans. It is a no-op for Noop providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
