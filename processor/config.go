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
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// KeyOutputProcessors is the parameter that carries a processor list inside
// a larger parameter map.
const KeyOutputProcessors = "output_processors"

// decodeOptions decodes cfg into the typed options struct out. Scalars are
// converted weakly, so "true" and "50ms" are accepted where a bool or a
// duration is expected.
func decodeOptions(typ string, cfg Config, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return configError(typ, "", "cannot build decoder: %v", err)
	}
	if err := dec.Decode(map[string]any(cfg)); err != nil {
		return configError(typ, "", "%v", err)
	}
	return nil
}

// requirePath compiles a required, non-blank path parameter.
func requirePath(typ, field, raw string) (*jsonpath.Path, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, configError(typ, field, "is required for %s processor", typ)
	}
	return jsonpath.Compile(raw), nil
}

// optionalPath compiles a path parameter that may be absent or blank.
func optionalPath(raw string) *jsonpath.Path {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return jsonpath.Compile(raw)
}

// ParseConfigs turns a nested processor description into a config list:
// nil gives an empty list, a single object gives one entry and a list of
// objects gives one entry per object.
func ParseConfigs(v any) ([]Config, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case Config:
		return []Config{tv}, nil
	case map[string]any:
		return []Config{Config(tv)}, nil
	case []Config:
		return append([]Config(nil), tv...), nil
	case []map[string]any:
		out := make([]Config, len(tv))
		for i, m := range tv {
			out[i] = Config(m)
		}
		return out, nil
	case []any:
		out := make([]Config, 0, len(tv))
		for i, e := range tv {
			switch m := e.(type) {
			case Config:
				out = append(out, m)
			case map[string]any:
				out = append(out, Config(m))
			default:
				return nil, &ConfigError{
					Field:  "processors",
					Reason: fmt.Sprintf("entry %d must be an object, got %T", i, e),
					err:    ErrInvalidConfig,
				}
			}
		}
		return out, nil
	default:
		return nil, &ConfigError{
			Field:  "processors",
			Reason: fmt.Sprintf("must be an object or a list of objects, got %T", v),
			err:    ErrInvalidConfig,
		}
	}
}

// ExtractConfigs reads the output_processors parameter, given either as a
// list or as a JSON string. Missing or invalid values give an empty list.
func ExtractConfigs(params map[string]any) []Config {
	raw, ok := params[KeyOutputProcessors]
	if !ok || raw == nil {
		return nil
	}
	if s, isString := raw.(string); isString {
		parsed, err := value.Parse(s)
		if err != nil {
			log.Warnf("invalid %s JSON: %v", KeyOutputProcessors, err)
			return nil
		}
		raw = parsed
	}
	configs, err := ParseConfigs(raw)
	if err != nil {
		log.Warnf("invalid %s: %v", KeyOutputProcessors, err)
		return nil
	}
	return configs
}

// LoadConfigs parses a JSON or YAML document holding either a processor
// list, a single processor, or an object with an output_processors key.
func LoadConfigs(data []byte) ([]Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("processor: parse config document: %w", err)
	}
	doc, err := value.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("processor: normalize config document: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		if nested, ok := m[KeyOutputProcessors]; ok {
			if s, isString := nested.(string); isString {
				if nested, err = value.Parse(s); err != nil {
					return nil, fmt.Errorf("processor: parse %s: %w", KeyOutputProcessors, err)
				}
			}
			return ParseConfigs(nested)
		}
	}
	return ParseConfigs(doc)
}
