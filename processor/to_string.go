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
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// ToString serializes its input to compact JSON text. Strings are kept as
// they are.
type ToString struct {
	escapeJSON bool
}

type toStringOptions struct {
	EscapeJSON bool `mapstructure:"escape_json"`
}

func newToString(cfg Config) (Processor, error) {
	var opts toStringOptions
	if err := decodeOptions(TypeToString, cfg, &opts); err != nil {
		return nil, err
	}
	return &ToString{escapeJSON: opts.EscapeJSON}, nil
}

// Type implements the processor type name.
func (p *ToString) Type() string { return TypeToString }

// Try implements Fallible.
func (p *ToString) Try(input any) (any, error) {
	text, ok := input.(string)
	if !ok {
		var err error
		if text, err = value.Marshal(input); err != nil {
			return input, err
		}
	}
	if p.escapeJSON {
		return value.Escape(text), nil
	}
	return text, nil
}

// Process implements Processor.
func (p *ToString) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeToString, out, err)
}
