//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package processor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// Chain runs processors in order, feeding each output into the next
// processor. A Chain is immutable and safe for concurrent use.
type Chain struct {
	processors []Processor
}

// NewChainOf builds a chain from already constructed processors. Nil
// entries are dropped.
func NewChainOf(processors ...Processor) *Chain {
	ps := make([]Processor, 0, len(processors))
	for _, p := range processors {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain{processors: ps}
}

// Process runs every stage on input. An empty chain returns input.
func (c *Chain) Process(input any) any {
	if c == nil {
		return input
	}
	ctx := context.Background()
	out := input
	for i, p := range c.processors {
		out, _ = runStage(ctx, i, p, out)
	}
	return out
}

// ProcessContext is Process wrapped in a process_chain span carrying one
// event per stage. Stage outcomes and the chain duration are recorded as
// metrics.
func (c *Chain) ProcessContext(ctx context.Context, input any) any {
	if c == nil {
		return input
	}
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameProcessChain,
		oteltrace.WithAttributes(attribute.Int(itelemetry.KeyChainLength, len(c.processors))))
	defer span.End()

	start := time.Now()
	out := input
	for i, p := range c.processors {
		var res stageResult
		out, res = runStage(ctx, i, p, out)
		attrs := []attribute.KeyValue{
			attribute.String(itelemetry.KeyProcessorType, res.typ),
			attribute.Int(itelemetry.KeyStageIndex, i),
			attribute.String(itelemetry.KeyStageOutcome, res.outcome),
		}
		if res.err != nil {
			attrs = append(attrs, attribute.String(itelemetry.KeyErrorMessage, res.err.Error()))
		}
		span.AddEvent(itelemetry.EventNameStage, oteltrace.WithAttributes(attrs...))
		if res.outcome == itelemetry.OutcomePanic {
			span.SetStatus(codes.Error, res.err.Error())
		}
	}
	itelemetry.RecordChainDuration(ctx, len(c.processors), time.Since(start))
	return out
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.processors)
}

// HasProcessors reports whether the chain has at least one stage.
func (c *Chain) HasProcessors() bool { return c.Len() > 0 }

// Processors returns a copy of the stages.
func (c *Chain) Processors() []Processor {
	if c == nil {
		return nil
	}
	return append([]Processor(nil), c.processors...)
}

// Apply runs processors over input as a one-off chain.
func Apply(input any, processors []Processor) any {
	return NewChainOf(processors...).Process(input)
}

type stageResult struct {
	typ     string
	outcome string
	err     error
}

// runStage runs one processor. A panic is logged and the stage input is
// passed on.
func runStage(ctx context.Context, index int, p Processor, input any) (out any, res stageResult) {
	res = stageResult{typ: typeOf(p), outcome: itelemetry.OutcomeOK}
	defer func() {
		if r := recover(); r != nil {
			log.ErrorfContext(ctx, "%s processor at stage %d panicked: %v\n%s", res.typ, index, r, debug.Stack())
			out = input
			res.outcome = itelemetry.OutcomePanic
			res.err = fmt.Errorf("panic: %v", r)
		}
		itelemetry.IncStage(ctx, res.typ, res.outcome)
		if log.TraceEnabled() {
			log.Tracef("stage %d %s %s: %s -> %s", index, res.typ, res.outcome, value.Text(input), value.Text(out))
		}
	}()
	if f, ok := p.(Fallible); ok {
		out, res.err = f.Try(input)
		if res.err != nil {
			res.outcome = itelemetry.OutcomeFallback
			log.Debugf("%s processor fell back: %v", res.typ, res.err)
		}
		return out, res
	}
	return p.Process(input), res
}
