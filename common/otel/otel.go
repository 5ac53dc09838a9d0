package otel

import (
	"context"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"log/slog"
	"ticketer/common/constant"
)

var Tracer = otel.Tracer("ticketer")

// Setup installs the global tracer provider when otel.endpoint is set and
// returns its shutdown func. Without an endpoint spans stay no-op.
func Setup(ctx context.Context, cfg *viper.Viper) func(context.Context) error {
	endpoint := cfg.GetString("otel.endpoint")
	if endpoint == "" {
		return func(context.Context) error { return nil }
	}

	serviceName := cfg.GetString("otel.service_name")

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(serviceName)),
	}
	if cfg.GetBool("otel.insecure") {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create otlp exporter", slog.Any(constant.LogFieldErr, err))
		return func(context.Context) error { return nil }
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		slog.WarnContext(ctx, "failed to build otel resource", slog.Any(constant.LogFieldErr, err))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown
}
