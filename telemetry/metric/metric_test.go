//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
)

func TestOptions(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "metrics:4318")
	cfg := itelemetry.NewExportConfig(itelemetry.SignalMetrics,
		WithProtocol("http"),
		WithHeaders(map[string]string{"k": "v"}),
	)
	assert.Equal(t, "metrics:4318", cfg.Endpoint)
	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, map[string]string{"k": "v"}, cfg.Headers)

	cfg = itelemetry.NewExportConfig(itelemetry.SignalMetrics, WithEndpoint("collector:4317"))
	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, itelemetry.ProtocolGRPC, cfg.Protocol)
}

func TestInitMeterProvider(t *testing.T) {
	old := GetMeterProvider()
	oldCounter, oldHist := itelemetry.StageCounter, itelemetry.ChainDurationMetric
	t.Cleanup(func() {
		itelemetry.MeterProvider = old
		itelemetry.StageCounter, itelemetry.ChainDurationMetric = oldCounter, oldHist
	})

	assert.Error(t, InitMeterProvider(nil))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, InitMeterProvider(mp))
	assert.Same(t, mp, GetMeterProvider())

	itelemetry.IncStage(context.Background(), "to_string", itelemetry.OutcomeOK)
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	assert.Equal(t, itelemetry.MetricStageCount, rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestNewMeterProvider(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			mp, err := NewMeterProvider(context.Background(),
				WithProtocol(protocol),
				WithEndpoint("localhost:0"),
			)
			require.NoError(t, err)
			require.NotNil(t, mp)
			// No collector is running, the shutdown error is irrelevant.
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = mp.Shutdown(ctx)
		})
	}
}
