// Package tracing wires optional OpenTelemetry spans around the bridge's
// connect/serve/dispatch path (spec SPEC_FULL.md domain stack). With no
// OTEL_EXPORTER_OTLP_ENDPOINT set, the default global TracerProvider is a
// no-op and every span started from an otel.Tracer costs nothing; Setup only replaces
// it when an endpoint is configured.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup registers an OTLP/HTTP exporter as the global TracerProvider when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, returning a shutdown func to flush
// and close it. When the variable is unset it is a no-op: the returned
// shutdown func does nothing and the default no-op tracer stays active.
func Setup(ctx context.Context) (shutdown func(context.Context) error, err error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
