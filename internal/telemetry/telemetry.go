//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the OpenTelemetry instruments shared by the
// processor packages. Instruments are no-ops until the public telemetry
// packages install real providers.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "trpc-processor"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-processor"
	InstrumentName   = "trpc.processor.go"

	SpanNameProcessChain = "process_chain"
	SpanNameProcessBatch = "process_batch"
	SpanNameDebugRequest = "debug_request"
	EventNameStage       = "stage"

	MeterNameProcessor  = "trpc.processor"
	MetricStageCount    = "trpc_processor.stage.count"
	MetricChainDuration = "trpc_processor.chain.duration"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// Attribute keys.
const (
	KeyProcessorType = "trpc_processor.type"
	KeyStageIndex    = "trpc_processor.stage.index"
	KeyStageOutcome  = "trpc_processor.stage.outcome"
	KeyChainLength   = "trpc_processor.chain.length"
	KeyBatchID       = "trpc_processor.batch.id"
	KeyBatchSize     = "trpc_processor.batch.size"
	KeyRequestID     = "trpc_processor.request.id"
	KeyErrorMessage  = "error.message"
)

// Stage outcomes.
const (
	// OutcomeOK means the stage produced its own result.
	OutcomeOK = "ok"
	// OutcomeFallback means the stage returned its input or its default.
	OutcomeFallback = "fallback"
	// OutcomePanic means the stage panicked and the chain kept its input.
	OutcomePanic = "panic"
)

var (
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	ProcessorMeter      metric.Meter            = MeterProvider.Meter(MeterNameProcessor)
	StageCounter        metric.Int64Counter     = noop.Int64Counter{}
	ChainDurationMetric metric.Float64Histogram = noop.Float64Histogram{}
)

// IncStage counts one executed stage.
func IncStage(ctx context.Context, processorType, outcome string) {
	StageCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(KeyProcessorType, processorType),
			attribute.String(KeyStageOutcome, outcome),
		))
}

// RecordChainDuration records how long a chain of the given length took.
func RecordChainDuration(ctx context.Context, length int, duration time.Duration) {
	ChainDurationMetric.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.Int(KeyChainLength, length)))
}

// Export signals, as named by the OTEL_EXPORTER_OTLP_<SIGNAL>_ENDPOINT
// variables.
const (
	SignalTraces  = "TRACES"
	SignalMetrics = "METRICS"
)

// ExportConfig tells the OTLP exporters where and how to send one signal.
type ExportConfig struct {
	Endpoint string
	Protocol string
	Headers  map[string]string
}

// ExportOption configures an ExportConfig.
type ExportOption func(*ExportConfig)

// NewExportConfig applies opts over the defaults. Without an explicit
// endpoint, OTEL_EXPORTER_OTLP_<signal>_ENDPOINT, then
// OTEL_EXPORTER_OTLP_ENDPOINT, then the local collector port of the
// protocol is used.
func NewExportConfig(signal string, opts ...ExportOption) ExportConfig {
	cfg := ExportConfig{Protocol: ProtocolGRPC}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint(signal, cfg.Protocol)
	}
	return cfg
}

func defaultEndpoint(signal, protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_" + signal + "_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

// NewResource describes the processor service to the collector.
// OTEL_RESOURCE_ATTRIBUTES entries are merged in.
func NewResource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(ServiceNamespace),
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// grpcDial is a package-level variable to allow test injection of a custom dialer.
var grpcDial = grpc.Dial

// NewGRPCConn dials the OpenTelemetry collector at endpoint.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpcDial(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
