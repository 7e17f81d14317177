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
	"strings"

	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// RemoveJSONPath deletes the node(s) selected by `path` and by every entry
// of `paths`, in that order. Removing an array element shifts the elements
// after it.
type RemoveJSONPath struct {
	paths []*jsonpath.Path
}

type removeOptions struct {
	Path  string   `mapstructure:"path"`
	Paths []string `mapstructure:"paths"`
}

func newRemoveJSONPath(cfg Config) (Processor, error) {
	var opts removeOptions
	if err := decodeOptions(TypeRemoveJSONPath, cfg, &opts); err != nil {
		return nil, err
	}
	var paths []*jsonpath.Path
	if strings.TrimSpace(opts.Path) != "" {
		paths = append(paths, jsonpath.Compile(opts.Path))
	}
	for i, raw := range opts.Paths {
		if strings.TrimSpace(raw) == "" {
			return nil, configError(TypeRemoveJSONPath, "paths", "entry %d is blank", i)
		}
		paths = append(paths, jsonpath.Compile(raw))
	}
	if len(paths) == 0 {
		return nil, configError(TypeRemoveJSONPath, "path", "or 'paths' is required for %s processor", TypeRemoveJSONPath)
	}
	return &RemoveJSONPath{paths: paths}, nil
}

// Type implements the processor type name.
func (p *RemoveJSONPath) Type() string { return TypeRemoveJSONPath }

// Try implements Fallible. A path that cannot be deleted is skipped; the
// error of the last skipped path is reported when nothing was removed.
func (p *RemoveJSONPath) Try(input any) (any, error) {
	doc, err := value.Document(input)
	if err != nil {
		return input, err
	}
	var (
		removed bool
		lastErr error
	)
	for _, path := range p.paths {
		out, err := path.Delete(doc)
		if err != nil {
			lastErr = err
			continue
		}
		doc, removed = out, true
	}
	if !removed {
		return input, lastErr
	}
	return doc, nil
}

// Process implements Processor.
func (p *RemoveJSONPath) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeRemoveJSONPath, out, err)
}
