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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPathFilter(t *testing.T) {
	in := doc(t, `{"user":{"name":"John","tags":["a","b"]},"items":[{"id":1},{"id":2}]}`)
	tests := []struct {
		name  string
		cfg   Config
		input any
		want  any
	}{
		{name: "definite", cfg: Config{"path": "$.user.name"}, input: in, want: "John"},
		{name: "index", cfg: Config{"path": "$.user.tags[1]"}, input: in, want: "b"},
		{name: "object node", cfg: Config{"path": "$.items[0]"}, input: in, want: map[string]any{"id": 1.0}},
		{name: "wildcard", cfg: Config{"path": "$.items[*].id"}, input: in, want: []any{1.0, 2.0}},
		{name: "wildcard without matches", cfg: Config{"path": "$.items[*].zzz"}, input: in, want: []any{}},
		{name: "missing uses default", cfg: Config{"path": "$.user.age", "default": "unknown"}, input: in, want: "unknown"},
		{name: "missing without default", cfg: Config{"path": "$.user.age"}, input: in, want: in},
		{name: "null default counts as absent", cfg: Config{"path": "$.user.age", "default": nil}, input: in, want: in},
		{name: "json text input", cfg: Config{"path": "$.a"}, input: `{"a": [1, 2]}`, want: []any{1.0, 2.0}},
		{name: "plain text input", cfg: Config{"path": "$.a", "default": 0}, input: "text", want: 0.0},
		{name: "invalid path", cfg: Config{"path": "$.a["}, input: in, want: in},
		{name: "host struct input", cfg: Config{"path": "$.Name"}, input: struct{ Name string }{"s"}, want: "s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg["type"] = TypeJSONPathFilter
			assert.Equal(t, tt.want, mustCreate(t, tt.cfg).Process(tt.input))
		})
	}
}

func TestJSONPathFilterDefaultIsCopied(t *testing.T) {
	p := mustCreate(t, Config{"type": TypeJSONPathFilter, "path": "$.x", "default": map[string]any{"k": "v"}})
	first := p.Process(map[string]any{}).(map[string]any)
	first["k"] = "changed"
	assert.Equal(t, map[string]any{"k": "v"}, p.Process(map[string]any{}))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		input any
		want  any
	}{
		{name: "object in prose", cfg: Config{}, input: `Result: {"a": 1} done`, want: map[string]any{"a": 1.0}},
		{name: "array first", cfg: Config{}, input: `list [1, 2] then {"a": 1}`, want: []any{1.0, 2.0}},
		{name: "object type skips array", cfg: Config{"extract_type": "OBJECT"}, input: `[1] {"a": 1}`, want: map[string]any{"a": 1.0}},
		{name: "array type", cfg: Config{"extract_type": "array"}, input: `x {"a": [3]}`, want: []any{3.0}},
		{name: "wrong shape uses default", cfg: Config{"extract_type": "object", "default": "none"}, input: `[1, 2]`, want: "none"},
		{name: "no bracket returns input", cfg: Config{}, input: "no json", want: "no json"},
		{name: "no bracket uses default", cfg: Config{"default": map[string]any{}}, input: "no json", want: map[string]any{}},
		{name: "parse failure returns input", cfg: Config{}, input: `{"a": }`, want: `{"a": }`},
		{name: "non text passes through", cfg: Config{"default": "d"}, input: 42.0, want: 42.0},
		{name: "fenced", cfg: Config{}, input: "```json\n{\"ok\": true}\n```", want: map[string]any{"ok": true}},
		{name: "repair trailing comma", cfg: Config{"repair": true}, input: `data: {"a": 1, "b": [1, 2,],}`, want: map[string]any{"a": 1.0, "b": []any{1.0, 2.0}}},
		{name: "repair single quotes", cfg: Config{"repair": true}, input: `{'name': 'x', ok: True}`, want: map[string]any{"name": "x", "ok": true}},
		{name: "repair unclosed", cfg: Config{"repair": "true"}, input: `answer {"a": [1, 2`, want: map[string]any{"a": []any{1.0, 2.0}}},
		{name: "no repair without flag", cfg: Config{}, input: `{'a': 1}`, want: `{'a': 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg["type"] = TypeExtractJSON
			assert.Equal(t, tt.want, mustCreate(t, tt.cfg).Process(tt.input))
		})
	}
}

func TestRemoveJSONPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		in   string
		want string
	}{
		{name: "key", path: "$.password", in: `{"user":"u","password":"p"}`, want: `{"user":"u"}`},
		{name: "nested key", path: "$.a.b", in: `{"a":{"b":1,"c":2}}`, want: `{"a":{"c":2}}`},
		{name: "array element shifts", path: "$.items[1]", in: `{"items":[1,2,3]}`, want: `{"items":[1,3]}`},
		{name: "wildcard field", path: "$.items[*].secret", in: `{"items":[{"id":1,"secret":"x"},{"id":2,"secret":"y"}]}`, want: `{"items":[{"id":1},{"id":2}]}`},
		{
			name: "descent at several depths",
			path: "$..email",
			in:   `{"email":"top","users":[{"email":"e","name":"J"},{"contact":{"email":"c"}}]}`,
			want: `{"users":[{"name":"J"},{"contact":{}}]}`,
		},
		{name: "missing is a no-op", path: "$.nope", in: `{"a":1}`, want: `{"a":1}`},
		{name: "root is a no-op", path: "$", in: `{"a":1}`, want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCreate(t, Config{"type": TypeRemoveJSONPath, "path": tt.path})
			once := p.Process(doc(t, tt.in))
			assertDoc(t, tt.want, once)
			assertDoc(t, tt.want, p.Process(once))
		})
	}
}

func TestRemoveJSONPathIsIdempotent(t *testing.T) {
	in := `{"password":"p","items":[{"id":1,"secret":"a"},{"id":2,"secret":"b"}],"nested":{"email":"n","list":[{"email":"l"}]}}`
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "key", cfg: Config{"path": "$.password"}},
		{name: "last array index", cfg: Config{"path": "$.items[1]"}},
		{name: "wildcard", cfg: Config{"path": "$.items[*].secret"}},
		{name: "descent", cfg: Config{"path": "$..email"}},
		{name: "path list", cfg: Config{"paths": []any{"$.password", "$..email"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{"type": TypeRemoveJSONPath}
			for k, v := range tt.cfg {
				cfg[k] = v
			}
			p := mustCreate(t, cfg)
			once := p.Process(doc(t, in))
			twice := p.Process(once)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("second application changed the document (-once +twice):\n%s", diff)
			}
			assert.NotEqual(t, doc(t, in), once)
		})
	}
}

func TestRemoveJSONPathList(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		in   string
		want string
	}{
		{
			name: "single entry",
			cfg:  Config{"paths": []any{"$.password"}},
			in:   `{"user":"u","password":"p"}`,
			want: `{"user":"u"}`,
		},
		{
			name: "several entries",
			cfg:  Config{"paths": []any{"$.password", "$.ssn"}},
			in:   `{"user":"u","password":"p","ssn":"1"}`,
			want: `{"user":"u"}`,
		},
		{
			name: "path and paths",
			cfg:  Config{"path": "$.a", "paths": []string{"$.b"}},
			in:   `{"a":1,"b":2,"c":3}`,
			want: `{"c":3}`,
		},
		{
			name: "failing entries are skipped",
			cfg:  Config{"paths": []any{"$.missing", "$[", "$.b"}},
			in:   `{"a":1,"b":2}`,
			want: `{"a":1}`,
		},
		{
			name: "nothing removed keeps input",
			cfg:  Config{"paths": []any{"$.x", "$.y"}},
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{"type": TypeRemoveJSONPath}
			for k, v := range tt.cfg {
				cfg[k] = v
			}
			assertDoc(t, tt.want, mustCreate(t, cfg).Process(doc(t, tt.in)))
		})
	}
}

func TestRemoveJSONPathListConfigErrors(t *testing.T) {
	for _, cfg := range []Config{
		{"type": TypeRemoveJSONPath, "paths": []any{}},
		{"type": TypeRemoveJSONPath, "paths": []any{"$.a", " "}},
		{"type": TypeRemoveJSONPath, "path": "  "},
	} {
		_, err := NewRegistry().Create(cfg)
		require.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestRemoveJSONPathOnText(t *testing.T) {
	p := mustCreate(t, Config{"type": TypeRemoveJSONPath, "path": "$.a"})
	assertDoc(t, `{"b":2}`, p.Process(`{"a":1,"b":2}`))
	assert.Equal(t, "plain", p.Process("plain"))
}
