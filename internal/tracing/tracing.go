// Package tracing builds the OpenTelemetry tracer provider from config.
package tracing

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sells-group/grc-cli/internal/config"
)

// Exporter names accepted in tracing.exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// NewProvider returns an SDK tracer provider for cfg. Spans go to w when the
// exporter is stdout; with none they are sampled and ended but not exported.
// Callers must Shutdown the provider to flush pending spans.
func NewProvider(cfg config.TracingConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "grc-cli"
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	switch cfg.Exporter {
	case ExporterNone, "":
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, eris.Wrap(err, "tracing: stdout exporter")
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, eris.Errorf("tracing: unknown exporter %q", cfg.Exporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// Install makes tp the global provider and sets W3C trace-context
// propagation. It returns a func that flushes and stops tp.
func Install(tp *sdktrace.TracerProvider) func(context.Context) error {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return func(ctx context.Context) error {
		return eris.Wrap(tp.Shutdown(ctx), "tracing: shutdown")
	}
}
