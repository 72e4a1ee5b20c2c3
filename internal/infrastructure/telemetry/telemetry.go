package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InstrumentationName names the tracer and meter used across the service
const InstrumentationName = "products-api"

// Telemetry holds the providers and logger shared by every component
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *slog.Logger

	conn *grpc.ClientConn
}

// NewTelemetry exports traces and metrics to the OTLP collector and serves
// metrics to Prometheus
func NewTelemetry(cfg *config.OTLPConfig) (*Telemetry, error) {
	ctx := context.Background()
	logger := initLogger(os.Stdout, cfg)

	logger.Info("Initializing OpenTelemetry",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("service_name", cfg.ServiceName),
	)

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	tp, err := initTracerProvider(ctx, conn, res)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	mp, err := initMeterProvider(ctx, conn, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		conn.Close()
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	install(tp, mp)
	logger.Info("Telemetry initialized (OTLP + Prometheus exporters)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
		conn:           conn,
	}, nil
}

// NewNoOpTelemetry keeps spans local and metrics on /metrics only. Used when
// OTEL_ENABLED is false.
func NewNoOpTelemetry(cfg *config.OTLPConfig) (*Telemetry, error) {
	ctx := context.Background()
	logger := initLogger(os.Stdout, cfg)

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	mp, err := initMeterProvider(ctx, nil, res)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	install(tp, mp)
	logger.Info("Telemetry initialized in no-op mode (export disabled)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
	}, nil
}

func install(tp *sdktrace.TracerProvider, mp *metric.MeterProvider) {
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Shutdown flushes both providers and closes the collector connection
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down OpenTelemetry")

	var errs []error
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown meter provider", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	t.Logger.Info("OpenTelemetry shutdown successfully")
	return nil
}
