package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Providers bundles the OpenTelemetry providers created at startup.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
	Logger *sdklog.LoggerProvider

	// Log is the slog logger bridged to the logger provider.
	Log *slog.Logger

	conn *grpc.ClientConn
}

// Setup initializes tracing, metrics and logging against one OTLP gRPC
// endpoint. The logger provider comes last so that log records carry the
// active span context.
func Setup(ctx context.Context, serviceName, otlpEndpoint, environment string) (*Providers, error) {
	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(otlpEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	p := &Providers{conn: conn}
	if p.Tracer, err = InitTracerProvider(ctx, conn, res); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Meter, err = InitMeterProvider(ctx, conn, res); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Logger, p.Log, err = InitLoggerProvider(ctx, conn, res, serviceName); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	return p, nil
}

// Shutdown flushes and stops every initialized provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Logger != nil {
		errs = append(errs, p.Logger.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

func newResource(serviceName, environment string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
