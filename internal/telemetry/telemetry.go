// Package telemetry installs the OpenTelemetry trace pipeline used by the
// profiler and the HTTP server. Without an OTLP endpoint the global no-op
// provider stays in place.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// EndpointEnv names the environment variable holding the OTLP gRPC endpoint.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// ShutdownFunc flushes and stops the pipeline.
type ShutdownFunc func(context.Context) error

// Setup exports spans to the OTLP collector at endpoint. An empty endpoint
// leaves tracing disabled and returns a no-op shutdown.
func Setup(ctx context.Context, endpoint, version, session string) (ShutdownFunc, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("memprof"),
			semconv.ServiceVersionKey.String(version),
			attribute.String("memprof.session", session),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	target := otlptracegrpc.WithEndpoint(endpoint)
	if strings.Contains(endpoint, "://") {
		target = otlptracegrpc.WithEndpointURL(endpoint)
	}
	exporter, err := otlptracegrpc.New(ctx, target, otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}
