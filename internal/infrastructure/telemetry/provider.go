package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

// sdkProvider is the part of the trace, metric and log SDK providers that the
// wrappers manage.
type sdkProvider interface {
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// lifecycle is embedded by the three provider wrappers. A nil sdk means the
// signal is disabled and every call is a no-op.
type lifecycle struct {
	signal string
	logger *zap.Logger
	sdk    sdkProvider
}

// Shutdown flushes what is buffered and stops the exporter
func (l *lifecycle) Shutdown(ctx context.Context) error {
	if l == nil || l.sdk == nil {
		return nil
	}
	l.logger.Info("Shutting down OpenTelemetry provider", zap.String("signal", l.signal))
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := l.sdk.Shutdown(ctx); err != nil {
		l.logger.Error("Provider shutdown failed", zap.String("signal", l.signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", l.signal, err)
	}
	return nil
}

// ForceFlush exports everything buffered so far
func (l *lifecycle) ForceFlush(ctx context.Context) error {
	if l == nil || l.sdk == nil {
		return nil
	}
	return l.sdk.ForceFlush(ctx)
}

func (l *lifecycle) running() bool {
	return l != nil && l.sdk != nil
}

func serviceResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func logProviderStarted(logger *zap.Logger, signal, endpoint, service string, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("signal", signal),
		zap.String("collector_endpoint", endpoint),
		zap.String("service_name", service),
	}, extra...)
	logger.Info("OpenTelemetry provider initialized", fields...)
}
