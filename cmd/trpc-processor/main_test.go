//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-processor-go/processor"
)

const labelChain = `
output_processors:
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
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, g := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := executeRoot(context.Background(), root, g)
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	chain := writeFile(t, dir, "label.yaml", labelChain)
	input := writeFile(t, dir, "input.txt", `model output: {"score": 0.2}`)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{"run", "-c", chain, `{"score": 0.9}`}, want: "positive\n"},
		{name: "input file", args: []string{"run", "-c", chain, "-i", input}, want: "negative\n"},
		{name: "stdin", stdin: "score follows {\"score\": 1}\n", args: []string{"run", "-c", chain}, want: "positive\n"},
		{
			name:  "batch",
			stdin: "{\"score\": 0.9}\n\n{\"score\": 0.1}\nnot json\n",
			args:  []string{"run", "-c", chain, "--batch", "-p", "2"},
			want:  "positive\nnegative\nnot json\n",
		},
		{name: "missing chain flag", args: []string{"run", "x"}, wantErr: true},
		{name: "argument and input file", args: []string{"run", "-c", chain, "-i", input, "x"}, wantErr: true},
		{name: "missing chain file", args: []string{"run", "-c", filepath.Join(dir, "none.yaml"), "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunCommandPrintsJSON(t *testing.T) {
	dir := t.TempDir()
	chain := writeFile(t, dir, "c.json", `[{"type": "remove_jsonpath", "path": "$.secret"}]`)
	out, err := execute(t, "", "run", "-c", chain, `{"keep": [1, 2], "secret": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, "{\"keep\":[1,2]}\n", out)
}

func TestRunCommandInvalidChain(t *testing.T) {
	dir := t.TempDir()
	chain := writeFile(t, dir, "bad.yaml", "- type: regex_replace\n")
	_, err := execute(t, "", "run", "-c", chain, "x")
	assert.ErrorIs(t, err, processor.ErrInvalidConfig)
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "", "types")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(processor.DefaultRegistry.Types(), "\n")+"\n", out)
}

func TestLogFormatFlag(t *testing.T) {
	_, err := execute(t, "", "--log-format", "xml", "types")
	assert.Error(t, err)
}

func TestLoadChains(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/label.yaml", labelChain)
	writeFile(t, dir, "a/b/strip.json", `[{"type": "remove_jsonpath", "path": "$.x"}]`)
	writeFile(t, dir, "a/notes.txt", "ignored")

	chains, err := loadChains(filepath.Join(dir, "**", "*.{yaml,json}"))
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, 3, chains["label"].Len())
	assert.Equal(t, 1, chains["strip"].Len())
	assert.Equal(t, "positive", chains["label"].Process(`{"score": 0.7}`))

	_, err = loadChains(filepath.Join(dir, "**", "*.toml"))
	assert.Error(t, err)

	writeFile(t, dir, "c/label.json", `[{"type": "to_string"}]`)
	_, err = loadChains(filepath.Join(dir, "**", "*.{yaml,json}"))
	assert.Error(t, err)

	writeFile(t, dir, "d/broken.yaml", "- type: nope\n")
	_, err = loadChains(filepath.Join(dir, "d", "*.yaml"))
	assert.ErrorIs(t, err, processor.ErrUnknownType)
}

func TestExecuteRootShutsDownOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "command succeeds", args: []string{"types"}},
		{name: "command fails", args: []string{"run", "--chain", "missing.yaml", "{}"}, wantErr: true},
		{name: "unknown command", args: []string{"nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, g := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tt.args)
			calls := 0
			g.cleanups = append(g.cleanups, func() error {
				calls++
				return nil
			})

			err := executeRoot(context.Background(), root, g)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, calls)
			assert.Empty(t, g.cleanups)
		})
	}
}

func TestExecuteRootJoinsShutdownError(t *testing.T) {
	root, g := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"types"})
	flushErr := errors.New("flush failed")
	g.cleanups = append(g.cleanups, func() error { return flushErr })

	err := executeRoot(context.Background(), root, g)
	assert.ErrorIs(t, err, flushErr)
}
