// Package tracing installs the OpenTelemetry tracer provider used by the
// control loop.
package tracing

import (
	"context"
	"fmt"

	"github.com/canopy-network/queuescaler/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const ServiceName = "queuescaler"

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global TracerProvider exporting over OTLP/gRPC when an
// OTLP endpoint is configured. The exporter itself reads the standard
// OTEL_EXPORTER_OTLP_* variables (endpoint, headers, insecure). Without an
// endpoint the global no-op provider is left in place.
func Setup(ctx context.Context, logger *zap.Logger) (ShutdownFunc, error) {
	endpoint := utils.EnvFirst("", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Debug("tracing disabled, no OTLP endpoint configured")
		return noopShutdown, nil
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	tp := NewProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("opentelemetry error", zap.Error(err))
	}))

	logger.Info("tracing enabled", zap.String("endpoint", endpoint))
	return tp.Shutdown, nil
}

// NewProvider builds a TracerProvider tagged with the service name.
func NewProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)
}
