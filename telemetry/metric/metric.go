//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package metric wires processor metrics to an OpenTelemetry meter
// provider, optionally exporting them over OTLP.
package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
)

// InitMeterProvider installs mp and creates the processor instruments on it.
func InitMeterProvider(mp metric.MeterProvider) error {
	if mp == nil {
		return fmt.Errorf("processor meter provider is nil")
	}
	meter := mp.Meter(itelemetry.MeterNameProcessor)
	stageCounter, err := meter.Int64Counter(
		itelemetry.MetricStageCount,
		metric.WithDescription("Number of executed processor stages by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create metric %s: %w", itelemetry.MetricStageCount, err)
	}
	chainDuration, err := meter.Float64Histogram(
		itelemetry.MetricChainDuration,
		metric.WithDescription("Duration of a processor chain run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create metric %s: %w", itelemetry.MetricChainDuration, err)
	}
	itelemetry.MeterProvider = mp
	itelemetry.ProcessorMeter = meter
	itelemetry.StageCounter = stageCounter
	itelemetry.ChainDurationMetric = chainDuration
	return nil
}

// GetMeterProvider returns the meter provider.
func GetMeterProvider() metric.MeterProvider {
	return itelemetry.MeterProvider
}

// Option configures where processor metrics are exported.
type Option = itelemetry.ExportOption

// WithEndpoint sets the collector endpoint (host and port). It takes
// precedence over OTEL_EXPORTER_OTLP_METRICS_ENDPOINT and
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

// NewMeterProvider creates a meter provider that periodically exports to
// an OTLP collector.
func NewMeterProvider(ctx context.Context, opts ...Option) (*sdkmetric.MeterProvider, error) {
	cfg := itelemetry.NewExportConfig(itelemetry.SignalMetrics, opts...)
	res, err := itelemetry.NewResource(ctx)
	if err != nil {
		return nil, err
	}

	var exporter sdkmetric.Exporter
	switch cfg.Protocol {
	case itelemetry.ProtocolHTTP:
		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithInsecure(),
		}
		if len(cfg.Headers) > 0 {
			httpOpts = append(httpOpts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		exporter, err = otlpmetrichttp.New(ctx, httpOpts...)
	default:
		conn, connErr := itelemetry.NewGRPCConn(cfg.Endpoint)
		if connErr != nil {
			return nil, fmt.Errorf("failed to create metrics connection: %w", connErr)
		}
		grpcOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithGRPCConn(conn)}
		if len(cfg.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		exporter, err = otlpmetricgrpc.New(ctx, grpcOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// Start creates an OTLP meter provider, installs it and returns a function
// that flushes and shuts it down.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	mp, err := NewMeterProvider(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := InitMeterProvider(mp); err != nil {
		return nil, err
	}
	return func() error {
		return mp.Shutdown(context.Background())
	}, nil
}
