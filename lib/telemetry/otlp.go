package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const exporterTimeout = 3 * time.Second

// protocol picks grpc over http when both endpoints are configured.
func (c OtlpConnConfig) protocol() (string, string, error) {
	switch {
	case c.GrpcEndpoint != "":
		return "grpc", c.GrpcEndpoint, nil
	case c.HttpEndpoint != "":
		return "http", c.HttpEndpoint, nil
	}
	return "", "", fmt.Errorf("no otlp endpoint configured")
}

func (c Config) sampler() trace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func (c Config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

func newTraceProvider(ctx context.Context, r *resource.Resource, config Config) (*trace.TracerProvider, error) {
	exporter, err := newSpanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
		trace.WithSampler(config.sampler()),
	), nil
}

func newSpanExporter(ctx context.Context, conn OtlpConnConfig) (trace.SpanExporter, error) {
	protocol, endpoint, err := conn.protocol()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	slog.Info(
		"tracer export initialized",
		"type", protocol,
		"endpoint", endpoint,
		"headers", len(conn.Headers) > 0,
	)
	if protocol == "grpc" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithHeaders(conn.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
}

func newMetricProvider(ctx context.Context, r *resource.Resource, config Config) (*metric.MeterProvider, error) {
	exporter, err := newMetricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(config.metricInterval()))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}

func newMetricExporter(ctx context.Context, conn OtlpConnConfig) (metric.Exporter, error) {
	protocol, endpoint, err := conn.protocol()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	slog.Info("metric exporter initialized", "type", protocol, "endpoint", endpoint)
	if protocol == "grpc" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithHeaders(conn.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(endpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
}
