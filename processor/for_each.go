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
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

var (
	errNotArray      = errors.New("path does not address an array")
	errEmptyArray    = errors.New("array is empty")
	errIndefiniteArr = errors.New("array path must address a single node")
)

// ForEach runs a nested chain on every element of an array and writes the
// results back in place.
type ForEach struct {
	path  *jsonpath.Path
	array *jsonpath.Path
	chain *Chain
}

func newForEach(r *Registry, cfg Config) (Processor, error) {
	var opts pathOptions
	if err := decodeOptions(TypeForEach, cfg, &opts); err != nil {
		return nil, err
	}
	path, err := requirePath(TypeForEach, "path", opts.Path)
	if err != nil {
		return nil, err
	}
	chain, err := nestedChain(r, TypeForEach, "processors", cfg["processors"])
	if err != nil {
		return nil, err
	}
	return &ForEach{path: path, array: path.StripTrailingWildcard(), chain: chain}, nil
}

// Type implements the processor type name.
func (p *ForEach) Type() string { return TypeForEach }

// Try implements Fallible.
func (p *ForEach) Try(input any) (any, error) {
	if err := p.array.Err(); err != nil {
		return input, err
	}
	if !p.array.IsDefinite() {
		return input, fmt.Errorf("%w: %s", errIndefiniteArr, p.array)
	}
	doc, err := value.Document(input)
	if err != nil {
		return input, err
	}
	node, err := p.array.Read(doc)
	if err != nil {
		return input, err
	}
	arr, ok := node.([]any)
	if !ok {
		return input, fmt.Errorf("%w: %s holds %s", errNotArray, p.array, value.KindOf(node))
	}
	if len(arr) == 0 {
		return input, errEmptyArray
	}
	out := make([]any, len(arr))
	for i, elem := range arr {
		out[i] = p.processElement(i, elem)
	}
	res, err := p.array.Set(doc, out)
	if err != nil {
		return input, err
	}
	return res, nil
}

// processElement runs the chain on a copy of elem. A panic keeps elem.
func (p *ForEach) processElement(index int, elem any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s processor: element %d panicked: %v", TypeForEach, index, r)
			out = elem
		}
	}()
	return p.chain.Process(value.Clone(elem))
}

// Process implements Processor.
func (p *ForEach) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeForEach, out, err)
}
