//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package trace holds the tracer used by processor chains and starts OTLP
// trace export.
package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
)

var (
	// TracerProvider is the provider processor spans are created from.
	TracerProvider trace.TracerProvider = noop.NewTracerProvider()
	// Tracer is the tracer processor chains use.
	Tracer trace.Tracer = TracerProvider.Tracer(itelemetry.InstrumentName)
)

// SetTracerProvider installs tp for processor spans.
func SetTracerProvider(tp trace.TracerProvider) {
	TracerProvider = tp
	Tracer = tp.Tracer(itelemetry.InstrumentName)
}

// Option configures where processor spans are exported.
type Option = itelemetry.ExportOption

// WithEndpoint sets the collector endpoint (host and port). It takes
// precedence over OTEL_EXPORTER_OTLP_TRACES_ENDPOINT and
// OTEL_EXPORTER_OTLP_ENDPOINT.
func WithEndpoint(endpoint string) Option {
	return func(c *itelemetry.ExportConfig) { c.Endpoint = endpoint }
}

// WithProtocol sets the export protocol, "grpc" (default) or "http".
func WithProtocol(protocol string) Option {
	return func(c *itelemetry.ExportConfig) { c.Protocol = protocol }
}

// WithHeaders sets headers sent with every export request.
func WithHeaders(headers map[string]string) Option {
	return func(c *itelemetry.ExportConfig) { c.Headers = headers }
}

// Start creates an OTLP tracer provider, installs it and returns a function
// that flushes and shuts it down.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	cfg := itelemetry.NewExportConfig(itelemetry.SignalTraces, opts...)
	res, err := itelemetry.NewResource(ctx)
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case itelemetry.ProtocolHTTP:
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		}
		if len(cfg.Headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracehttp.New(ctx, httpOpts...)
	default:
		conn, connErr := itelemetry.NewGRPCConn(cfg.Endpoint)
		if connErr != nil {
			return nil, fmt.Errorf("failed to create traces connection: %w", connErr)
		}
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithGRPCConn(conn)}
		if len(cfg.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exporter, err = otlptracegrpc.New(ctx, grpcOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	SetTracerProvider(tp)
	return func() error {
		return tp.Shutdown(context.Background())
	}, nil
}
