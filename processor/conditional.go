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
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"trpc.group/trpc-go/trpc-processor-go/jsonpath"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

// Condition keywords and prefixes.
const (
	CondNull      = "null"
	CondNotExists = "not_exists"
	CondExists    = "exists"

	prefixRegex    = "regex:"
	prefixContains = "contains:"

	numericTolerance = 1e-10
)

// Conditional picks the first route whose condition matches a value of
// its input and runs that route's chain on the input.
type Conditional struct {
	path   *jsonpath.Path
	routes []route
	def    *Chain
}

type route struct {
	cond  *condition
	chain *Chain
}

func newConditional(r *Registry, cfg Config) (Processor, error) {
	var opts pathOptions
	if err := decodeOptions(TypeConditional, cfg, &opts); err != nil {
		return nil, err
	}
	routes, err := parseRoutes(r, cfg["routes"])
	if err != nil {
		return nil, err
	}
	def, err := r.CreateChainFrom(cfg["default"])
	if err != nil {
		return nil, fmt.Errorf("%s processor: 'default': %w", TypeConditional, err)
	}
	return &Conditional{path: optionalPath(opts.Path), routes: routes, def: def}, nil
}

func parseRoutes(r *Registry, raw any) ([]route, error) {
	var entries []any
	switch tv := raw.(type) {
	case []any:
		entries = tv
	case []map[string]any:
		for _, m := range tv {
			entries = append(entries, m)
		}
	case []Config:
		for _, m := range tv {
			entries = append(entries, map[string]any(m))
		}
	case nil:
	default:
		return nil, configError(TypeConditional, "routes", "must be a list of objects, got %T", raw)
	}
	if len(entries) == 0 {
		return nil, configError(TypeConditional, "routes", "is required for %s processor", TypeConditional)
	}
	var routes []route
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			if c, isConfig := entry.(Config); isConfig {
				m = c
			} else {
				return nil, configError(TypeConditional, "routes", "entry %d must be an object, got %T", i, entry)
			}
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			chain, err := r.CreateChainFrom(m[k])
			if err != nil {
				return nil, fmt.Errorf("%s processor: route %q: %w", TypeConditional, k, err)
			}
			routes = append(routes, route{cond: parseCondition(k), chain: chain})
		}
	}
	return routes, nil
}

// Type implements the processor type name.
func (p *Conditional) Type() string { return TypeConditional }

// Process implements Processor.
func (p *Conditional) Process(input any) any {
	candidate := p.candidate(input)
	for _, rt := range p.routes {
		if rt.cond.matches(candidate) {
			return rt.chain.Process(input)
		}
	}
	return p.def.Process(input)
}

// candidate returns the value conditions are checked against. Missing
// paths and read errors give nil.
func (p *Conditional) candidate(input any) any {
	if p.path == nil {
		return input
	}
	doc, err := value.Document(input)
	if err != nil {
		return nil
	}
	v, err := p.path.Read(doc)
	if err != nil {
		log.Debugf("%s processor: read %s: %v", TypeConditional, p.path, err)
		return nil
	}
	return v
}

// condition is a route key parsed once.
type condition struct {
	raw string

	op        string // numeric comparator, "" when the key is not one
	threshold float64
	numericOK bool

	re       *regexp2.Regexp
	contains string
	isRegex  bool
	isSubstr bool
}

func parseCondition(raw string) *condition {
	c := &condition{raw: raw}
	for _, op := range []string{">=", "<=", "==", ">", "<"} {
		if strings.HasPrefix(raw, op) {
			c.op = op
			f, err := strconv.ParseFloat(strings.TrimSpace(raw[len(op):]), 64)
			c.threshold, c.numericOK = f, err == nil
			break
		}
	}
	switch {
	case strings.HasPrefix(raw, prefixRegex):
		pattern := raw[len(prefixRegex):]
		re, err := regexp2.Compile(`\A(?:`+pattern+`)\z`, regexp2.None)
		if err != nil {
			log.Warnf("%s processor: invalid regex in condition %q: %v", TypeConditional, raw, err)
			break
		}
		c.re, c.isRegex = re, true
	case strings.HasPrefix(raw, prefixContains):
		c.contains, c.isSubstr = raw[len(prefixContains):], true
	}
	return c
}

func (c *condition) matches(v any) bool {
	if isNullish(v) {
		return c.raw == CondNull || c.raw == CondNotExists
	}
	if c.raw == CondExists {
		return true
	}
	s := value.Text(v)
	if s == c.raw {
		return true
	}
	if c.op != "" && c.numericOK {
		if n, ok := value.ToFloat(v); ok {
			return compare(c.op, n, c.threshold)
		}
	}
	if c.isRegex {
		ok, err := c.re.MatchString(s)
		return err == nil && ok
	}
	if c.isSubstr {
		return strings.Contains(s, c.contains)
	}
	return false
}

func compare(op string, n, threshold float64) bool {
	switch op {
	case ">":
		return n > threshold
	case "<":
		return n < threshold
	case ">=":
		return n >= threshold
	case "<=":
		return n <= threshold
	default:
		return math.Abs(n-threshold) < numericTolerance
	}
}

// isNullish reports nil and empty lists.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	arr, ok := v.([]any)
	return ok && len(arr) == 0
}
