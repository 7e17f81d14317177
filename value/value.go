//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package value defines the JSON value model shared by every processor.
//
// A value is an `any` restricted to nil, bool, float64, string, []any and
// map[string]any. Host values outside that shape are normalized through a
// JSON round trip before processing.
package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

// Kind classifies a value.
type Kind int

// Value kinds.
const (
	Invalid Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

var kindNames = map[Kind]string{
	Invalid: "invalid",
	Null:    "null",
	Bool:    "bool",
	Number:  "number",
	String:  "string",
	Array:   "array",
	Object:  "object",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrEmptyText is returned by Parse when the text holds no JSON value.
var ErrEmptyText = errors.New("value: empty text")

// KindOf classifies v. Host types that are not part of the canonical model
// report Invalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return Number
	case string:
		return String
	case []any:
		return Array
	case map[string]any:
		return Object
	default:
		return Invalid
	}
}

// Normalize maps v onto the canonical model. Numbers become float64 and
// host structs, typed slices and typed maps go through a JSON round trip.
// Values that are already canonical are returned as is.
func Normalize(v any) (any, error) {
	if isCanonical(v) {
		return v, nil
	}
	switch tv := v.(type) {
	case json.Number:
		return tv.Float64()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}
	if f, ok := ToFloat(v); ok && KindOf(v) == Number {
		return f, nil
	}
	text, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return Parse(text)
}

func isCanonical(v any) bool {
	switch tv := v.(type) {
	case nil, bool, float64, string:
		return true
	case []any:
		for _, e := range tv {
			if !isCanonical(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range tv {
			if !isCanonical(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of v so callers never alias another step's
// document.
func Clone(v any) any {
	return deepcopy.Copy(v)
}

// Marshal returns the compact JSON text of v. HTML characters are not
// escaped and object keys are sorted.
func Marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Parse decodes the first JSON value in text. Content after that value is
// ignored.
func Parse(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	var v any
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Text returns the string form of v: strings as they are, everything else
// as compact JSON. Values that cannot be serialized fall back to fmt.
func Text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	text, err := Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return text
}

// Escape escapes s so that it can be embedded inside a JSON string literal.
func Escape(s string) string {
	quoted, err := Marshal(s)
	if err != nil {
		return s
	}
	return quoted[1 : len(quoted)-1]
}

// ToFloat converts numeric values, and strings holding a number, to
// float64.
func ToFloat(v any) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int8:
		return float64(tv), true
	case int16:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint8:
		return float64(tv), true
	case uint16:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case json.Number:
		f, err := tv.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// LooksLikeJSON reports whether s, once trimmed, starts like an object or an
// array.
func LooksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// Document prepares v for path based processing. A string holding a JSON
// object or array is parsed; anything else is normalized. The result never
// aliases v.
func Document(v any) (any, error) {
	if s, ok := v.(string); ok && LooksLikeJSON(s) {
		if parsed, err := Parse(s); err == nil {
			return parsed, nil
		}
		return s, nil
	}
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return Clone(n), nil
}
