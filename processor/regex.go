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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"trpc.group/trpc-go/trpc-processor-go/value"
)

var (
	errNoMatch         = errors.New("pattern did not match")
	errNothingCaptured = errors.New("no configured group was captured")
)

type regexOptions struct {
	Pattern      string        `mapstructure:"pattern"`
	Replacement  string        `mapstructure:"replacement"`
	ReplaceAll   *bool         `mapstructure:"replace_all"`
	Groups       any           `mapstructure:"groups"`
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

// compilePattern compiles a required pattern with dot matching newlines.
func compilePattern(typ string, opts regexOptions) (*regexp2.Regexp, error) {
	if strings.TrimSpace(opts.Pattern) == "" {
		return nil, configError(typ, "pattern", "is required for %s processor", typ)
	}
	re, err := regexp2.Compile(opts.Pattern, regexp2.Singleline)
	if err != nil {
		return nil, configError(typ, "pattern", "is not a valid regular expression: %v", err)
	}
	if opts.MatchTimeout < 0 {
		return nil, configError(typ, "match_timeout", "must not be negative")
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}
	return re, nil
}

// textOf returns the text regex processors work on.
func textOf(input any) (string, error) {
	if s, ok := input.(string); ok {
		return s, nil
	}
	return value.Marshal(input)
}

// RegexReplace rewrites the text form of its input with a regular
// expression. Replacements may reference groups as $1 or ${name}; a
// backslash makes the next character literal, so `\$` gives a dollar sign
// and `\\` a backslash.
type RegexReplace struct {
	re          *regexp2.Regexp
	replacement string
	replaceAll  bool
}

func newRegexReplace(cfg Config) (Processor, error) {
	var opts regexOptions
	if err := decodeOptions(TypeRegexReplace, cfg, &opts); err != nil {
		return nil, err
	}
	re, err := compilePattern(TypeRegexReplace, opts)
	if err != nil {
		return nil, err
	}
	replaceAll := true
	if opts.ReplaceAll != nil {
		replaceAll = *opts.ReplaceAll
	}
	return &RegexReplace{re: re, replacement: replacementTemplate(opts.Replacement), replaceAll: replaceAll}, nil
}

// replacementTemplate rewrites backslash escapes into the template syntax
// of regexp2, where only `$$` is special for a literal dollar sign.
func replacementTemplate(repl string) string {
	if !strings.Contains(repl, `\`) {
		return repl
	}
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '\\' && i+1 < len(repl) {
			i++
			c = repl[i]
			if c == '$' {
				b.WriteString("$$")
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Type implements the processor type name.
func (p *RegexReplace) Type() string { return TypeRegexReplace }

// Try implements Fallible.
func (p *RegexReplace) Try(input any) (any, error) {
	text, err := textOf(input)
	if err != nil {
		return input, err
	}
	count := 1
	if p.replaceAll {
		count = -1
	}
	out, err := p.re.Replace(text, p.replacement, -1, count)
	if err != nil {
		return input, err
	}
	return out, nil
}

// Process implements Processor.
func (p *RegexReplace) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeRegexReplace, out, err)
}

// RegexCapture returns groups of the first match in the text form of its
// input. A single group gives a string, several give a list.
type RegexCapture struct {
	re     *regexp2.Regexp
	groups []int
}

func newRegexCapture(cfg Config) (Processor, error) {
	var opts regexOptions
	if err := decodeOptions(TypeRegexCapture, cfg, &opts); err != nil {
		return nil, err
	}
	re, err := compilePattern(TypeRegexCapture, opts)
	if err != nil {
		return nil, err
	}
	groups, err := parseGroups(opts.Groups)
	if err != nil {
		return nil, configError(TypeRegexCapture, "groups", "has invalid format %v: %v", opts.Groups, err)
	}
	return &RegexCapture{re: re, groups: groups}, nil
}

// parseGroups accepts 2, "2", "[1, 3]" or [1, 3]. nil means group 1.
func parseGroups(v any) ([]int, error) {
	if v == nil {
		return []int{1}, nil
	}
	var groups []int
	switch tv := v.(type) {
	case string:
		s := strings.TrimSpace(tv)
		if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, err
			}
			return []int{n}, nil
		}
		for _, part := range strings.Split(s[1:len(s)-1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			groups = append(groups, n)
		}
	case []any:
		for _, e := range tv {
			n, err := groupIndex(e)
			if err != nil {
				return nil, err
			}
			groups = append(groups, n)
		}
	case []int:
		groups = append(groups, tv...)
	default:
		n, err := groupIndex(tv)
		if err != nil {
			return nil, err
		}
		groups = append(groups, n)
	}
	if len(groups) == 0 {
		return nil, errors.New("empty group list")
	}
	return groups, nil
}

func groupIndex(v any) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	f, ok := value.ToFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.New("group index must be an integer")
	}
	return int(f), nil
}

// Type implements the processor type name.
func (p *RegexCapture) Type() string { return TypeRegexCapture }

// Try implements Fallible.
func (p *RegexCapture) Try(input any) (any, error) {
	text, err := textOf(input)
	if err != nil {
		return input, err
	}
	m, err := p.re.FindStringMatch(text)
	if err != nil {
		return input, err
	}
	if m == nil {
		return input, errNoMatch
	}
	captures := make([]any, 0, len(p.groups))
	for _, idx := range p.groups {
		// GroupCount includes group 0.
		if idx < 0 || idx >= m.GroupCount() {
			continue
		}
		g := m.GroupByNumber(idx)
		if g == nil || len(g.Captures) == 0 {
			captures = append(captures, nil)
			continue
		}
		captures = append(captures, g.String())
	}
	switch len(captures) {
	case 0:
		return input, errNothingCaptured
	case 1:
		return captures[0], nil
	default:
		return captures, nil
	}
}

// Process implements Processor.
func (p *RegexCapture) Process(input any) any {
	out, err := p.Try(input)
	return failOpen(TypeRegexCapture, out, err)
}
