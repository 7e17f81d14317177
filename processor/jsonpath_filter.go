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
	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// JSONPathFilter replaces its input with the node(s) a path selects.
type JSONPathFilter struct {
	path *jsonpath.Path
	def  fallback
}

type pathOptions struct {
	Path       string `mapstructure:"path"`
	SourcePath string `mapstructure:"source_path"`
}

func newJSONPathFilter(cfg Config) (Processor, error) {
	var opts pathOptions
	if err := decodeOptions(TypeJSONPathFilter, cfg, &opts); err != nil {
		return nil, err
	}
	path, err := requirePath(TypeJSONPathFilter, "path", opts.Path)
	if err != nil {
		return nil, err
	}
	return &JSONPathFilter{path: path, def: fallbackFrom(cfg)}, nil
}

// Type implements the processor type name.
func (p *JSONPathFilter) Type() string { return TypeJSONPathFilter }

// Try implements Fallible.
func (p *JSONPathFilter) Try(input any) (any, error) {
	doc, err := value.Document(input)
	if err != nil {
		return p.def.or(input), err
	}
	out, err := p.path.Read(doc)
	if err != nil {
		return p.def.or(input), err
	}
	return out, nil
}

// Process implements Processor.
func (p *JSONPathFilter) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeJSONPathFilter, out, err)
}

// fallback is an optional configured default. A null default counts as
// absent.
type fallback struct {
	v   any
	set bool
}

func fallbackFrom(cfg Config) fallback {
	v, ok := cfg["default"]
	if !ok || v == nil {
		return fallback{}
	}
	n, err := value.Normalize(v)
	if err != nil {
		n = v
	}
	return fallback{v: n, set: true}
}

// or returns a copy of the default, or input when there is none.
func (f fallback) or(input any) any {
	if !f.set {
		return input
	}
	return value.Clone(f.v)
}
