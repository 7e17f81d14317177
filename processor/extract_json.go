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
	"strings"

	"trpc.group/trpc-go/trpc-processor-go/internal/jsonrepair"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// Extract types.
const (
	ExtractAuto   = "auto"
	ExtractObject = "object"
	ExtractArray  = "array"
)

var (
	errNotText     = errors.New("input is not text")
	errNoJSONStart = errors.New("no JSON start character found")
)

// ExtractJSON parses the first JSON object or array embedded in text.
// Text before the value and after it is ignored.
type ExtractJSON struct {
	extractType string
	repair      bool
	def         fallback
}

type extractJSONOptions struct {
	ExtractType string `mapstructure:"extract_type"`
	Repair      bool   `mapstructure:"repair"`
}

func newExtractJSON(cfg Config) (Processor, error) {
	var opts extractJSONOptions
	if err := decodeOptions(TypeExtractJSON, cfg, &opts); err != nil {
		return nil, err
	}
	typ := strings.ToLower(strings.TrimSpace(opts.ExtractType))
	switch typ {
	case "":
		typ = ExtractAuto
	case ExtractAuto, ExtractObject, ExtractArray:
	default:
		return nil, configError(TypeExtractJSON, "extract_type", "must be one of auto, object or array, got %q", opts.ExtractType)
	}
	return &ExtractJSON{extractType: typ, repair: opts.Repair, def: fallbackFrom(cfg)}, nil
}

// Type implements the processor type name.
func (p *ExtractJSON) Type() string { return TypeExtractJSON }

// Try implements Fallible.
func (p *ExtractJSON) Try(input any) (any, error) {
	text, ok := input.(string)
	if !ok {
		return input, errNotText
	}
	start := p.start(text)
	if start < 0 {
		return p.def.or(input), errNoJSONStart
	}
	v, err := value.Parse(text[start:])
	if err != nil && p.repair {
		var repaired string
		if repaired, err = jsonrepair.RepairPrefix(text[start:]); err == nil {
			v, err = value.Parse(repaired)
		}
	}
	if err != nil {
		return p.def.or(input), err
	}
	if !p.accepts(v) {
		return p.def.or(input), fmt.Errorf("extracted %s, want %s", value.KindOf(v), p.extractType)
	}
	return v, nil
}

// Process implements Processor.
func (p *ExtractJSON) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeExtractJSON, out, err)
}

func (p *ExtractJSON) start(text string) int {
	switch p.extractType {
	case ExtractObject:
		return strings.IndexByte(text, '{')
	case ExtractArray:
		return strings.IndexByte(text, '[')
	}
	brace, bracket := strings.IndexByte(text, '{'), strings.IndexByte(text, '[')
	switch {
	case brace < 0:
		return bracket
	case bracket < 0:
		return brace
	default:
		return min(brace, bracket)
	}
}

func (p *ExtractJSON) accepts(v any) bool {
	switch value.KindOf(v) {
	case value.Object:
		return p.extractType != ExtractArray
	case value.Array:
		return p.extractType != ExtractObject
	default:
		return false
	}
}
