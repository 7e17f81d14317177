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
	"fmt"

	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// SetField writes a constant, or a value copied from another path, into
// the document.
type SetField struct {
	path   *jsonpath.Path
	value  any
	source *jsonpath.Path
	def    fallback
}

func newSetField(cfg Config) (Processor, error) {
	var opts pathOptions
	if err := decodeOptions(TypeSetField, cfg, &opts); err != nil {
		return nil, err
	}
	path, err := requirePath(TypeSetField, "path", opts.Path)
	if err != nil {
		return nil, err
	}
	v, hasValue := cfg["value"]
	source := optionalPath(opts.SourcePath)
	_, hasDefault := cfg["default"]
	switch {
	case hasValue && source != nil:
		return nil, configError(TypeSetField, "value", "cannot be combined with 'source_path'")
	case !hasValue && source == nil:
		return nil, configError(TypeSetField, "value", "or 'source_path' is required for %s processor", TypeSetField)
	case hasDefault && source == nil:
		return nil, configError(TypeSetField, "default", "is only allowed with 'source_path'")
	}
	p := &SetField{path: path, source: source, def: fallbackFrom(cfg)}
	if hasValue {
		if p.value, err = value.Normalize(v); err != nil {
			return nil, configError(TypeSetField, "value", "is not a JSON value: %v", err)
		}
	}
	return p, nil
}

// Type implements the processor type name.
func (p *SetField) Type() string { return TypeSetField }

// Try implements Fallible.
func (p *SetField) Try(input any) (any, error) {
	doc, err := value.Document(input)
	if err != nil {
		return input, err
	}
	v := p.value
	if p.source != nil {
		if v, err = p.source.Read(doc); err != nil {
			if !p.def.set {
				return input, err
			}
			v = p.def.v
		}
	}
	out, err := p.path.Set(doc, value.Clone(v))
	if err != nil {
		return input, err
	}
	return out, nil
}

// Process implements Processor.
func (p *SetField) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeSetField, out, err)
}

// ProcessAndSet runs a nested chain over its whole input and stores the
// result at a path.
type ProcessAndSet struct {
	path  *jsonpath.Path
	chain *Chain
}

func newProcessAndSet(r *Registry, cfg Config) (Processor, error) {
	var opts pathOptions
	if err := decodeOptions(TypeProcessAndSet, cfg, &opts); err != nil {
		return nil, err
	}
	path, err := requirePath(TypeProcessAndSet, "path", opts.Path)
	if err != nil {
		return nil, err
	}
	chain, err := nestedChain(r, TypeProcessAndSet, "processors", cfg["processors"])
	if err != nil {
		return nil, err
	}
	return &ProcessAndSet{path: path, chain: chain}, nil
}

// Type implements the processor type name.
func (p *ProcessAndSet) Type() string { return TypeProcessAndSet }

// Try implements Fallible.
func (p *ProcessAndSet) Try(input any) (any, error) {
	doc, err := value.Document(input)
	if err != nil {
		return input, err
	}
	result := p.chain.Process(value.Clone(input))
	out, err := p.path.Set(doc, result)
	if err != nil {
		return input, err
	}
	return out, nil
}

// Process implements Processor.
func (p *ProcessAndSet) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeProcessAndSet, out, err)
}

// nestedChain builds the required, non-empty chain held in field.
func nestedChain(r *Registry, typ, field string, raw any) (*Chain, error) {
	if raw == nil {
		return nil, configError(typ, field, "is required for %s processor", typ)
	}
	chain, err := r.CreateChainFrom(raw)
	if err != nil {
		return nil, fmt.Errorf("%s processor: '%s': %w", typ, field, err)
	}
	if !chain.HasProcessors() {
		return nil, configError(typ, field, "must contain at least one processor")
	}
	return chain, nil
}
