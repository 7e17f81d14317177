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
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/telemetry/trace"
)

const poolReleaseTimeout = 5 * time.Second

// BatchOption configures ProcessBatch.
type BatchOption func(*batchOptions)

type batchOptions struct {
	parallelism int
}

// WithParallelism sets how many inputs are processed at once. Values below
// one are ignored.
func WithParallelism(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

type batchParam struct {
	idx     int
	ctx     context.Context
	chain   *Chain
	input   any
	results []any
	wg      *sync.WaitGroup
}

func (p *batchParam) reset() {
	p.idx = 0
	p.ctx = nil
	p.chain = nil
	p.input = nil
	p.results = nil
	p.wg = nil
}

var batchParamPool = &sync.Pool{
	New: func() any { return new(batchParam) },
}

func createBatchPool(size int) (*ants.PoolWithFunc, error) {
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*batchParam)
		if !ok {
			panic("batch pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			batchParamPool.Put(param)
		}()
		param.results[param.idx] = param.chain.ProcessContext(param.ctx, param.input)
	})
	if err != nil {
		return nil, fmt.Errorf("create batch pool: %w", err)
	}
	return pool, nil
}

// ProcessBatch runs every input through chain on a worker pool. Results
// keep the order of inputs. When ctx is done no further input is started
// and ctx.Err() is returned once the running inputs finish.
func ProcessBatch(ctx context.Context, chain *Chain, inputs []any, opts ...BatchOption) ([]any, error) {
	if chain == nil {
		return nil, errors.New("processor: batch: chain is nil")
	}
	o := &batchOptions{parallelism: runtime.NumCPU()}
	for _, opt := range opts {
		opt(o)
	}
	results := make([]any, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	batchID := uuid.NewString()
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameProcessBatch,
		oteltrace.WithAttributes(
			attribute.String(itelemetry.KeyBatchID, batchID),
			attribute.Int(itelemetry.KeyBatchSize, len(inputs)),
			attribute.Int(itelemetry.KeyChainLength, chain.Len()),
		))
	defer span.End()

	pool, err := createBatchPool(min(o.parallelism, len(inputs)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer func() {
		if err := pool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			log.WarnfContext(ctx, "batch %s: release pool: %v", batchID, err)
		}
	}()

	var wg sync.WaitGroup
	var submitErr error
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			submitErr = err
			break
		}
		param := batchParamPool.Get().(*batchParam)
		param.idx = i
		param.ctx = ctx
		param.chain = chain
		param.input = input
		param.results = results
		param.wg = &wg
		wg.Add(1)
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			batchParamPool.Put(param)
			submitErr = fmt.Errorf("processor: batch %s: submit input %d: %w", batchID, i, err)
			break
		}
	}
	wg.Wait()
	if submitErr != nil {
		span.SetStatus(codes.Error, submitErr.Error())
		return nil, submitErr
	}
	return results, nil
}
