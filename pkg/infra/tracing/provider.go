package tracing

import (
	"context"
	"fmt"
	"os"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider owns an SDK tracer provider.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	opts           *Options
}

// NewProvider completes and validates opts and builds a provider. An enabled
// provider becomes the global one together with the W3C propagators. A nil
// opts means NewOptions.
func NewProvider(opts *Options) (*Provider, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Complete(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if !opts.Enabled {
		return &Provider{tracerProvider: sdktrace.NewTracerProvider(), opts: opts}, nil
	}

	res, err := newResource(opts)
	if err != nil {
		return nil, fmt.Errorf("tracing: create resource: %w", err)
	}

	exporter, err := newExporter(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(opts)),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(
			exporter,
			sdktrace.WithBatchTimeout(opts.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(opts.BatchMaxSize),
			sdktrace.WithExportTimeout(opts.ExportTimeout),
			sdktrace.WithMaxQueueSize(opts.MaxQueueSize),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Infow("tracing enabled",
		"exporter", string(opts.ExporterType),
		"endpoint", opts.Endpoint,
		"sampler", string(opts.SamplerType),
	)

	return &Provider{tracerProvider: tp, opts: opts}, nil
}

// MustNewProvider is NewProvider that panics on error.
func MustNewProvider(opts *Options) *Provider {
	p, err := NewProvider(opts)
	if err != nil {
		panic(fmt.Sprintf("tracing: %v", err))
	}
	return p
}

// Tracer returns a named tracer of this provider.
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.tracerProvider == nil {
		return otel.Tracer(name, opts...)
	}
	return p.tracerProvider.Tracer(name, opts...)
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.opts != nil && p.opts.Enabled
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// ForceFlush exports pending spans.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.ForceFlush(ctx)
}

func newResource(opts *Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(opts.Environment))
	}
	for k, v := range opts.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.New(context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
}

func newExporter(ctx context.Context, opts *Options) (sdktrace.SpanExporter, error) {
	switch opts.ExporterType {
	case ExporterOTLPGRPC:
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(opts.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(opts.Headers))
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(grpcOpts...))
	case ExporterOTLPHTTP:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		if len(opts.Headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(opts.Headers))
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(httpOpts...))
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stdout))
	case ExporterNoop:
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", opts.ExporterType)
	}
}

type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                             { return nil }

func newSampler(opts *Options) sdktrace.Sampler {
	switch opts.SamplerType {
	case SamplerAlwaysOn:
		return sdktrace.AlwaysSample()
	case SamplerAlwaysOff:
		return sdktrace.NeverSample()
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(opts.SamplerRatio)
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SamplerRatio))
	}
}
