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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigs(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []Config
		wantErr bool
	}{
		{name: "nil", in: nil, want: nil},
		{name: "single map", in: map[string]any{"type": "a"}, want: []Config{{"type": "a"}}},
		{name: "single config", in: Config{"type": "a"}, want: []Config{{"type": "a"}}},
		{name: "list", in: []any{map[string]any{"type": "a"}, Config{"type": "b"}}, want: []Config{{"type": "a"}, {"type": "b"}}},
		{name: "typed list", in: []map[string]any{{"type": "a"}}, want: []Config{{"type": "a"}}},
		{name: "config list", in: []Config{{"type": "a"}}, want: []Config{{"type": "a"}}},
		{name: "empty list", in: []any{}, want: []Config{}},
		{name: "string", in: "to_string", wantErr: true},
		{name: "list of strings", in: []any{"to_string"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigs(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractConfigs(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   []Config
	}{
		{name: "nil params", params: nil},
		{name: "missing", params: map[string]any{"other": 1}},
		{
			name:   "list",
			params: map[string]any{KeyOutputProcessors: []any{map[string]any{"type": TypeToString}}},
			want:   []Config{{"type": TypeToString}},
		},
		{
			name:   "json text",
			params: map[string]any{KeyOutputProcessors: `[{"type":"jsonpath_filter","path":"$.a"}]`},
			want:   []Config{{"type": TypeJSONPathFilter, "path": "$.a"}},
		},
		{name: "invalid json text", params: map[string]any{KeyOutputProcessors: `[{"type":`}},
		{name: "invalid shape", params: map[string]any{KeyOutputProcessors: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractConfigs(tt.params))
		})
	}
}

func TestLoadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []Config
		wantErr bool
	}{
		{
			name: "json list",
			data: `[{"type": "extract_json", "extract_type": "object"}]`,
			want: []Config{{"type": TypeExtractJSON, "extract_type": "object"}},
		},
		{
			name: "yaml list",
			data: "- type: regex_capture\n  pattern: '(\\d+)'\n  groups: [1, 2]\n",
			want: []Config{{"type": TypeRegexCapture, "pattern": `(\d+)`, "groups": []any{1.0, 2.0}}},
		},
		{
			name: "yaml output_processors",
			data: "output_processors:\n  - type: to_string\n    escape_json: true\n",
			want: []Config{{"type": TypeToString, "escape_json": true}},
		},
		{
			name: "output_processors as json text",
			data: `{"output_processors": "[{\"type\": \"to_string\"}]"}`,
			want: []Config{{"type": TypeToString}},
		},
		{
			name: "single object",
			data: "type: remove_jsonpath\npath: $.a\n",
			want: []Config{{"type": TypeRemoveJSONPath, "path": "$.a"}},
		},
		{name: "empty", data: "", want: nil},
		{name: "malformed", data: "[1, 2", wantErr: true},
		{name: "scalar", data: "42", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadConfigs([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigsBuildsChain(t *testing.T) {
	configs, err := LoadConfigs([]byte(`
- type: extract_json
- type: conditional
  path: $.score
  routes:
    - ">=0.5":
        - type: set_field
          path: $.label
          value: positive
  default:
    - type: set_field
      path: $.label
      value: negative
- type: jsonpath_filter
  path: $.label
`))
	require.NoError(t, err)
	c, err := NewRegistry().CreateChain(configs)
	require.NoError(t, err)
	assert.Equal(t, "positive", c.Process(`{"score": 0.9}`))
	assert.Equal(t, "negative", c.Process(`{"score": 0.1}`))
}
