// Package telemetry initialises optional OpenTelemetry trace, metric, and log
// providers backed by an OTLP gRPC collector. All three providers share a
// single gRPC connection to reduce overhead.
//
// Call [Setup] once during startup. The returned [ShutdownFunc] must be called
// before the process exits to flush pending telemetry.
//
// If telemetry is not configured, the global providers remain no-ops and the
// rest of the codebase incurs no overhead.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/njoerd114/placereminder/internal/config"
)

// Config groups all telemetry settings. It maps 1-to-1 with the
// [config.TelemetryConfig] YAML block; see [FromConfig].
type Config struct {
	// OTLPEndpoint is the gRPC host:port of your OTLP collector,
	// e.g. "localhost:4317" or "otelcol.example.com:4317".
	OTLPEndpoint string

	// Insecure disables TLS for the collector connection.
	// Set to true for local collectors that have no TLS cert.
	Insecure bool

	// ServiceName overrides the OTel service.name resource attribute.
	// Defaults to [DefaultServiceName].
	ServiceName string

	// ServiceVersion becomes the service.version attribute when set.
	ServiceVersion string

	// Headers is sent as gRPC metadata on every OTLP request.
	// Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment variable.
	// Typical use: authentication tokens such as {"Authorization": "Bearer <token>"}.
	Headers map[string]string
}

// FromConfig converts the YAML telemetry block. The second result is false
// when the block is absent and telemetry should stay disabled.
func FromConfig(c *config.TelemetryConfig, version string) (Config, bool) {
	if c == nil || c.OTLPEndpoint == "" {
		return Config{}, false
	}
	return Config{
		OTLPEndpoint:   c.OTLPEndpoint,
		Insecure:       c.Insecure,
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		Headers:        c.Headers,
	}, true
}

func (c Config) resource() (*resource.Resource, error) {
	svcName := c.ServiceName
	if svcName == "" {
		svcName = DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(svcName)}
	if c.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(c.ServiceVersion))
	}
	// NewSchemaless avoids a schema URL conflict between resource.Default()
	// and the semconv version imported here.
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// DefaultServiceName is the service.name used when none is configured.
const DefaultServiceName = "placereminder"

// ShutdownFunc flushes and closes all OTel providers.
// It must be called with a fresh context (the main context may already be
// cancelled by the time shutdown runs).
type ShutdownFunc func(context.Context) error

// Setup initialises the global OpenTelemetry trace, metric, and log providers.
// The three exporters share a single gRPC connection to cfg.OTLPEndpoint.
//
// Returns a [ShutdownFunc] that must be deferred by the caller to flush and
// close all providers. The function is always non-nil; on error it becomes a
// no-op so callers can defer unconditionally.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	res, err := cfg.resource()
	if err != nil {
		return noopShutdown, fmt.Errorf("building OTel resource: %w", err)
	}

	creds := credentials.NewTLS(nil) // system root CAs
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(cfg.OTLPEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return noopShutdown, fmt.Errorf("dialling OTLP collector at %q: %w", cfg.OTLPEndpoint, err)
	}

	// Closers run in reverse order; the connection goes last.
	closers := []closer{{"OTLP gRPC connection close", func(context.Context) error { return conn.Close() }}}
	fail := func(err error) (ShutdownFunc, error) {
		_ = shutdownAll(ctx, closers)
		return noopShutdown, err
	}

	for _, start := range []func(context.Context, *grpc.ClientConn, Config, *resource.Resource) (closer, error){
		startTraces,
		startMetrics,
		startLogs,
	} {
		c, err := start(ctx, conn, cfg, res)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, c)
	}

	return func(ctx context.Context) error { return shutdownAll(ctx, closers) }, nil
}

// closer is one named shutdown step.
type closer struct {
	name string
	fn   func(context.Context) error
}

func shutdownAll(ctx context.Context, closers []closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", closers[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// --- Providers ---------------------------------------------------------------

func startTraces(ctx context.Context, conn *grpc.ClientConn, cfg Config, res *resource.Resource) (closer, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(conn),
		otlptracegrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return closer{}, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return closer{"trace provider shutdown", tp.Shutdown}, nil
}

func startMetrics(ctx context.Context, conn *grpc.ClientConn, cfg Config, res *resource.Resource) (closer, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithGRPCConn(conn),
		otlpmetricgrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return closer{}, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return closer{"metric provider shutdown", mp.Shutdown}, nil
}

func startLogs(ctx context.Context, conn *grpc.ClientConn, cfg Config, res *resource.Resource) (closer, error) {
	exp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithGRPCConn(conn),
		otlploggrpc.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return closer{}, fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	return closer{"log provider shutdown", lp.Shutdown}, nil
}

// noopShutdown is returned on error so callers can always defer unconditionally.
func noopShutdown(_ context.Context) error { return nil }
