// Package tracing configures the OpenTelemetry tracer provider and offers
// small helpers for starting spans and recording errors.
//
// Service operations start a client span per call ("mongokit.<operation>")
// on the global provider, so nothing is exported until NewProvider installs
// an enabled one.
package tracing

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mongokit/pkg/errors"
)

// SamplerType selects the sampling strategy.
type SamplerType string

const (
	SamplerAlwaysOn    SamplerType = "always_on"
	SamplerAlwaysOff   SamplerType = "always_off"
	SamplerRatio       SamplerType = "ratio"
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType selects where spans go.
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	ExporterOTLPHTTP ExporterType = "otlp_http"
	// ExporterStdout pretty prints spans, for development.
	ExporterStdout ExporterType = "stdout"
	ExporterNoop   ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	ServiceName    string `json:"service-name" mapstructure:"service-name"`
	ServiceVersion string `json:"service-version" mapstructure:"service-version"`
	Environment    string `json:"environment" mapstructure:"environment"`

	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`

	// Endpoint is host:port for otlp_grpc and otlp_http.
	Endpoint string            `json:"endpoint" mapstructure:"endpoint"`
	Insecure bool              `json:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `json:"headers" mapstructure:"headers"`

	SamplerType SamplerType `json:"sampler-type" mapstructure:"sampler-type"`
	// SamplerRatio is used by ratio and as the root ratio of parent_based.
	SamplerRatio float64 `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	BatchTimeout  time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
	BatchMaxSize  int           `json:"batch-max-size" mapstructure:"batch-max-size"`
	ExportTimeout time.Duration `json:"export-timeout" mapstructure:"export-timeout"`
	MaxQueueSize  int           `json:"max-queue-size" mapstructure:"max-queue-size"`

	ResourceAttributes map[string]string `json:"resource-attributes" mapstructure:"resource-attributes"`
}

// NewOptions creates default tracing options. Tracing is disabled.
func NewOptions() *Options {
	return &Options{
		ServiceName:        "tree-app",
		ServiceVersion:     "1.0.0",
		Environment:        "development",
		ExporterType:       ExporterOTLPGRPC,
		Endpoint:           "localhost:4317",
		Insecure:           true,
		Headers:            make(map[string]string),
		SamplerType:        SamplerParentBased,
		SamplerRatio:       1.0,
		BatchTimeout:       5 * time.Second,
		BatchMaxSize:       512,
		ExportTimeout:      30 * time.Second,
		MaxQueueSize:       2048,
		ResourceAttributes: make(map[string]string),
	}
}

// AddFlags adds the tracing.* flags to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "tracing.enabled", o.Enabled, "Enable OpenTelemetry tracing.")
	fs.StringVar(&o.ServiceName, "tracing.service-name", o.ServiceName, "Service name reported with every span.")
	fs.StringVar(&o.ServiceVersion, "tracing.service-version", o.ServiceVersion, "Service version reported with every span.")
	fs.StringVar(&o.Environment, "tracing.environment", o.Environment, "Deployment environment.")
	fs.StringVar((*string)(&o.ExporterType), "tracing.exporter-type", string(o.ExporterType), "Exporter type (otlp_grpc, otlp_http, stdout, noop).")
	fs.StringVar(&o.Endpoint, "tracing.endpoint", o.Endpoint, "OTLP exporter endpoint.")
	fs.BoolVar(&o.Insecure, "tracing.insecure", o.Insecure, "Disable TLS for the OTLP connection.")
	fs.StringToStringVar(&o.Headers, "tracing.headers", o.Headers, "Extra OTLP request headers.")
	fs.StringVar((*string)(&o.SamplerType), "tracing.sampler-type", string(o.SamplerType), "Sampler type (always_on, always_off, ratio, parent_based).")
	fs.Float64Var(&o.SamplerRatio, "tracing.sampler-ratio", o.SamplerRatio, "Sampling ratio between 0 and 1.")
	fs.DurationVar(&o.BatchTimeout, "tracing.batch-timeout", o.BatchTimeout, "Maximum delay before a batch is exported.")
	fs.IntVar(&o.BatchMaxSize, "tracing.batch-max-size", o.BatchMaxSize, "Maximum spans per exported batch.")
	fs.DurationVar(&o.ExportTimeout, "tracing.export-timeout", o.ExportTimeout, "Timeout of one export.")
	fs.IntVar(&o.MaxQueueSize, "tracing.max-queue-size", o.MaxQueueSize, "Maximum spans queued for export.")
}

// Complete initialises nil maps.
func (o *Options) Complete() error {
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	if o.ResourceAttributes == nil {
		o.ResourceAttributes = make(map[string]string)
	}
	return nil
}

// Validate checks the options when tracing is enabled.
func (o *Options) Validate() error {
	if !o.Enabled {
		return nil
	}

	invalid := func(format string, args ...interface{}) error {
		return errors.ErrConfigInvalid.WithMessagef("tracing: "+format, args...)
	}

	if o.ServiceName == "" {
		return invalid("service name is required")
	}

	switch o.ExporterType {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			return invalid("endpoint is required for exporter %s", o.ExporterType)
		}
	case ExporterStdout, ExporterNoop:
	default:
		return invalid("invalid exporter type %q", o.ExporterType)
	}

	switch o.SamplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		return invalid("invalid sampler type %q", o.SamplerType)
	}
	if o.SamplerRatio < 0 || o.SamplerRatio > 1 {
		return invalid("sampler ratio must be between 0 and 1, got %g", o.SamplerRatio)
	}

	if o.BatchTimeout <= 0 || o.ExportTimeout <= 0 {
		return invalid("batch and export timeouts must be positive")
	}
	if o.BatchMaxSize <= 0 || o.MaxQueueSize <= 0 {
		return invalid("batch max size and max queue size must be positive")
	}
	return nil
}
