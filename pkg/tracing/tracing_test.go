package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func stubExporterFactory(t *testing.T, fn func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error)) {
	t.Helper()
	orig := newTraceExporter
	newTraceExporter = fn
	t.Cleanup(func() { newTraceExporter = orig })
}

func TestServiceNameOverride(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "  ")
	if got := ServiceName(); got != DefaultServiceName {
		t.Fatalf("expected default service name, got %s", got)
	}
	t.Setenv("OTEL_SERVICE_NAME", "patternctl")
	if got := ServiceName(); got != "patternctl" {
		t.Fatalf("expected override, got %s", got)
	}
}

func TestInitTracerDisabledSkipsExporter(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "False")
	built := false
	stubExporterFactory(t, func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		built = true
		return &recordingExporter{}, nil
	})

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	if built {
		t.Fatal("exporter must not be created when tracing is disabled")
	}

	_, span := tracer.Start(context.Background(), "pattern.detect")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("expected spans to be recorded in-process")
	}
}

func TestInitTracerExportsToEndpoint(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "sentiment-worker")

	exp := &recordingExporter{}
	stubExporterFactory(t, func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		exp.endpoint = endpoint
		return exp, nil
	})

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.endpoint != "collector:4317" {
		t.Fatalf("expected endpoint to be propagated, got %s", exp.endpoint)
	}

	_, span := tracer.Start(context.Background(), "analysis-service.analyze")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	if len(exp.spans) != 1 {
		t.Fatalf("expected 1 exported span, got %d", len(exp.spans))
	}
	if name := exp.spans[0].Name(); name != "analysis-service.analyze" {
		t.Fatalf("unexpected span name %s", name)
	}
	var service string
	for _, kv := range exp.spans[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "sentiment-worker" {
		t.Fatalf("expected service.name sentiment-worker, got %q", service)
	}
}

func TestInitTracerExporterError(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")
	stubExporterFactory(t, func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		return nil, errors.New("dial failed")
	})

	if _, _, err := InitTracer(context.Background()); err == nil || err.Error() != "dial failed" {
		t.Fatalf("expected exporter error, got %v", err)
	}
}

type recordingExporter struct {
	endpoint string
	spans    []sdktrace.ReadOnlySpan
}

func (e *recordingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.spans = append(e.spans, spans...)
	return nil
}

func (e *recordingExporter) Shutdown(ctx context.Context) error {
	return nil
}
