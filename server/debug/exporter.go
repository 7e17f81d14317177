//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package debug

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
)

// maxRetainedSpans bounds the exporter so a long running server does not
// grow without limit. The oldest spans are dropped first.
const maxRetainedSpans = 10000

// inMemoryExporter keeps finished spans and indexes the traces of debug
// requests by request id.
type inMemoryExporter struct {
	mu            sync.Mutex
	requestTraces map[string]string // key: request_id, value: trace_id
	spans         []sdktrace.ReadOnlySpan
}

func newInMemoryExporter() *inMemoryExporter {
	return &inMemoryExporter{requestTraces: make(map[string]string)}
}

func (e *inMemoryExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, span := range spans {
		if span.Name() != itelemetry.SpanNameDebugRequest {
			continue
		}
		for _, attr := range span.Attributes() {
			if attr.Key != attribute.Key(itelemetry.KeyRequestID) {
				continue
			}
			e.requestTraces[attr.Value.AsString()] = span.SpanContext().TraceID().String()
			break
		}
	}
	e.spans = append(e.spans, spans...)
	if n := len(e.spans) - maxRetainedSpans; n > 0 {
		e.spans = append([]sdktrace.ReadOnlySpan(nil), e.spans[n:]...)
	}
	return nil
}

func (e *inMemoryExporter) Shutdown(_ context.Context) error {
	return nil
}

func (e *inMemoryExporter) getFinishedSpans(requestID string) []sdktrace.ReadOnlySpan {
	e.mu.Lock()
	defer e.mu.Unlock()
	traceID, ok := e.requestTraces[requestID]
	if !ok {
		return nil
	}
	var spans []sdktrace.ReadOnlySpan
	for _, s := range e.spans {
		if s.SpanContext().TraceID().String() == traceID {
			spans = append(spans, s)
		}
	}
	return spans
}

func (e *inMemoryExporter) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = make([]sdktrace.ReadOnlySpan, 0)
	e.requestTraces = make(map[string]string)
}

func convertSpan(span sdktrace.ReadOnlySpan) Span {
	out := Span{
		Name:       span.Name(),
		SpanID:     span.SpanContext().SpanID().String(),
		TraceID:    span.SpanContext().TraceID().String(),
		StartTime:  span.StartTime().UnixNano(),
		EndTime:    span.EndTime().UnixNano(),
		Attributes: buildAttributes(span.Attributes()),
		Status:     span.Status().Code.String(),
	}
	if span.Parent().IsValid() {
		out.ParentSpanID = span.Parent().SpanID().String()
	}
	for _, ev := range span.Events() {
		out.Events = append(out.Events, Event{
			Name:       ev.Name,
			Time:       ev.Time.UnixNano(),
			Attributes: buildAttributes(ev.Attributes),
		})
	}
	return out
}

func buildAttributes(attrs []attribute.KeyValue) map[string]any {
	result := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		result[string(kv.Key)] = kv.Value.AsInterface()
	}
	return result
}
