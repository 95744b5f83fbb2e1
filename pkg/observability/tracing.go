// Package observability wires distributed tracing around pool
// operations. It is intentionally small: the pool's hot path (Acquire,
// Release) runs under real concurrency, so span creation is opt-in via
// config.ObservabilityConfig.EnableTracing rather than always-on.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("connpool")

// Init installs a stdout-exporting tracer provider and returns its
// shutdown func. A 10% trace-ID sampler keeps overhead bounded when
// tracing is enabled on a busy pool.
func Init(serviceName string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(0.1)),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(serviceName)
	return tp.Shutdown, nil
}

// StartAcquire opens a span around Pool.Acquire.
func StartAcquire(ctx context.Context, pool string, partition int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "connpool.acquire")
	span.SetAttributes(
		attribute.String("connpool.pool", pool),
		attribute.Int("connpool.partition", partition),
	)
	return ctx, span
}

// StartRelease opens a span around Pool.Release.
func StartRelease(ctx context.Context, pool string, partition int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "connpool.release")
	span.SetAttributes(
		attribute.String("connpool.pool", pool),
		attribute.Int("connpool.partition", partition),
	)
	return ctx, span
}

// End finalizes span, marking it errored if err is non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
