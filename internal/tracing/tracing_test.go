package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/sells-group/grc-cli/internal/config"
)

func TestNewProvider_StdoutExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{Exporter: ExporterStdout, SampleRatio: 1, ServiceName: "grc-test"}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "project.create")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"project.create"`)
	assert.Contains(t, out, "grc-test")
}

func TestNewProvider_NoneSamplesWithoutExporting(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(config.TracingConfig{Exporter: ExporterNone, SampleRatio: 1}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "project.patch")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestNewProvider_ZeroRatioDropsSpans(t *testing.T) {
	tp, err := NewProvider(config.TracingConfig{Exporter: ExporterNone}, nil)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "project.patch")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Exporter: "zipkin"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown exporter "zipkin"`)
}

func TestInstall(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tp, err := NewProvider(config.TracingConfig{Exporter: ExporterNone, SampleRatio: 1}, nil)
	require.NoError(t, err)
	shutdown := Install(tp)

	assert.Same(t, tp, otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	require.NoError(t, shutdown(context.Background()))
}
