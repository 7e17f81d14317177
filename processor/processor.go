//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package processor implements declarative document processors and the
// chains that run them.
//
// A processor is built once from a Config, a plain map holding a `type`
// discriminator and type specific parameters, and then transforms JSON
// values. Configuration mistakes are reported when a processor is built;
// at run time processors fail open and return their input (or their
// configured default) instead of an error.
//
//	chain, err := processor.NewChain([]processor.Config{
//		{"type": "extract_json"},
//		{"type": "jsonpath_filter", "path": "$.answer"},
//	})
//	if err != nil {
//		return err
//	}
//	out := chain.Process(modelOutput)
package processor

import (
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-processor-go/log"
)

// Built-in processor types.
const (
	TypeToString       = "to_string"
	TypeRegexReplace   = "regex_replace"
	TypeRegexCapture   = "regex_capture"
	TypeJSONPathFilter = "jsonpath_filter"
	TypeExtractJSON    = "extract_json"
	TypeSetField       = "set_field"
	TypeProcessAndSet  = "process_and_set"
	TypeConditional    = "conditional"
	TypeForEach        = "for_each"
	TypeRemoveJSONPath = "remove_jsonpath"
)

// Processor transforms one value into another. Process never fails: on
// error it returns its input or a configured default. Implementations must
// be safe for concurrent use.
type Processor interface {
	Process(input any) any
}

// Fallible is implemented by processors that can report why they fell
// back. Try returns the value Process would return together with the
// reason for a fallback, if any.
type Fallible interface {
	Try(input any) (any, error)
}

// Config is the raw configuration of one processor. It always carries a
// `type` key.
type Config map[string]any

// Type returns the `type` discriminator, or "" when it is missing or not a
// string.
func (c Config) Type() string {
	t, _ := c["type"].(string)
	return t
}

// Configuration errors.
var (
	// ErrInvalidConfig reports a missing, malformed or conflicting parameter.
	ErrInvalidConfig = errors.New("processor: invalid config")
	// ErrUnknownType reports a missing or unregistered processor type.
	ErrUnknownType = errors.New("processor: unknown type")
)

// ConfigError describes a configuration mistake found while building a
// processor. It wraps ErrInvalidConfig or ErrUnknownType.
type ConfigError struct {
	Type   string // Type is the processor type being built.
	Field  string // Field is the offending parameter.
	Reason string // Reason explains what is wrong.

	err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s processor: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("%s processor: '%s' %s", e.Type, e.Field, e.Reason)
}

// Unwrap returns the sentinel the error belongs to.
func (e *ConfigError) Unwrap() error { return e.err }

func configError(typ, field, format string, args ...any) *ConfigError {
	return &ConfigError{Type: typ, Field: field, Reason: fmt.Sprintf(format, args...), err: ErrInvalidConfig}
}

// failOpen logs why a processor fell back and returns out.
func failOpen(typ string, out any, err error) any {
	if err != nil {
		log.Debugf("%s processor fell back: %v", typ, err)
	}
	return out
}

// typeOf names a processor for logs and telemetry.
func typeOf(p Processor) string {
	if t, ok := p.(interface{ Type() string }); ok {
		return t.Type()
	}
	return fmt.Sprintf("%T", p)
}
