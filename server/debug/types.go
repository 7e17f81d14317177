//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package debug

// ProcessRequest is the body of a process call. Processors is only read by
// POST /process. When Inputs is present the request runs as a batch.
type ProcessRequest struct {
	Processors any   `json:"processors,omitempty"`
	Input      any   `json:"input"`
	Inputs     []any `json:"inputs,omitempty"`
}

// ProcessResponse carries the result of a run and the id its trace can be
// fetched by.
type ProcessResponse struct {
	RequestID string `json:"request_id"`
	Output    any    `json:"output"`
	Outputs   []any  `json:"outputs,omitempty"`
}

// ChainRequest defines a named chain.
type ChainRequest struct {
	Processors any `json:"processors"`
}

// ChainInfo describes a named chain.
type ChainInfo struct {
	Name   string `json:"name"`
	Stages int    `json:"stages"`
}

// ProcessorsResponse lists the registered processor types.
type ProcessorsResponse struct {
	Types []string `json:"types"`
}

// ErrorResponse is written for every failed call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Span is a finished span of a debug request.
type Span struct {
	Name         string         `json:"name"`
	SpanID       string         `json:"span_id"`
	TraceID      string         `json:"trace_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	StartTime    int64          `json:"start_time"`
	EndTime      int64          `json:"end_time"`
	Status       string         `json:"status"`
	Attributes   map[string]any `json:"attributes"`
	Events       []Event        `json:"events,omitempty"`
}

// Event is a span event, one per chain stage.
type Event struct {
	Name       string         `json:"name"`
	Time       int64          `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
