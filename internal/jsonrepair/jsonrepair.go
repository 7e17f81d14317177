//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package jsonrepair turns almost-JSON text, typically produced by language
// models, into valid JSON.
//
// It handles markdown code fences, comments, single and curly quotes,
// unquoted keys and values, Python literals, missing or trailing commas,
// missing values and unclosed strings, objects and arrays.
package jsonrepair

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Repair repairs input, which must hold exactly one JSON value once fences
// and stray closing brackets are skipped.
func Repair(input []byte) ([]byte, error) {
	p := &parser{text: []rune(string(input))}
	out, err := p.repair(false)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RepairPrefix repairs the first JSON value of text and ignores whatever
// follows it.
func RepairPrefix(text string) (string, error) {
	p := &parser{text: []rune(text)}
	return p.repair(true)
}

type parser struct {
	text []rune
	i    int
	out  strings.Builder
	err  *Error
}

func (p *parser) repair(prefix bool) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Message: "Unexpected error", Position: min(p.i, len(p.text))}
		}
	}()
	p.skipFence(true)
	if !p.parseValue() {
		if p.err != nil {
			return "", p.err
		}
		return "", &Error{Message: "Unexpected end of json string", Position: len(p.text)}
	}
	if p.err != nil {
		return "", p.err
	}
	if prefix {
		return p.out.String(), nil
	}
	p.skipFence(false)
	for p.i < len(p.text) && (p.text[p.i] == '}' || p.text[p.i] == ']' || p.text[p.i] == ',') {
		p.i++
		p.skipSpace()
	}
	if p.i < len(p.text) {
		return "", &Error{Message: "Unexpected character " + quote(string(p.text[p.i])), Position: p.i}
	}
	return p.out.String(), nil
}

func (p *parser) peek() rune {
	if p.i < len(p.text) {
		return p.text[p.i]
	}
	return 0
}

func (p *parser) eof() bool { return p.i >= len(p.text) }

func (p *parser) hasPrefix(s string) bool {
	r := []rune(s)
	if p.i+len(r) > len(p.text) {
		return false
	}
	return string(p.text[p.i:p.i+len(r)]) == s
}

// skipFence skips a markdown code fence. An opening fence may carry a
// language tag such as ```json.
func (p *parser) skipFence(opening bool) {
	p.skipSpace()
	if !p.hasPrefix("```") {
		return
	}
	p.i += 3
	if opening {
		for !p.eof() && (unicode.IsLetter(p.peek()) || unicode.IsDigit(p.peek())) {
			p.i++
		}
	}
	p.skipSpace()
}

// skipSpace skips whitespace and comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		switch {
		case unicode.IsSpace(p.peek()):
			p.i++
		case p.hasPrefix("//"):
			for !p.eof() && p.peek() != '\n' {
				p.i++
			}
		case p.hasPrefix("/*"):
			p.i += 2
			for !p.eof() && !p.hasPrefix("*/") {
				p.i++
			}
			p.i = min(p.i+2, len(p.text))
		default:
			return
		}
	}
}

func (p *parser) parseValue() bool {
	p.skipSpace()
	if p.eof() || p.err != nil {
		return false
	}
	c := p.peek()
	switch {
	case c == '{':
		p.parseObject()
	case c == '[':
		p.parseArray()
	case isQuote(c):
		p.parseString()
	case c == '-' || c == '.' || unicode.IsDigit(c):
		p.parseNumber()
	case c == '}' || c == ']' || c == ',' || c == ':':
		return false
	default:
		p.parseUnquoted(false)
	}
	return p.err == nil
}

func (p *parser) parseObject() {
	p.i++
	p.out.WriteByte('{')
	first := true
	for {
		p.skipSpace()
		if p.eof() {
			p.out.WriteByte('}')
			return
		}
		c := p.peek()
		if c == '}' {
			p.i++
			p.out.WriteByte('}')
			return
		}
		if c == ',' {
			p.i++
			continue
		}
		if c == ']' {
			// Mismatched bracket: close the object here.
			p.i++
			p.out.WriteByte('}')
			return
		}
		if !first {
			p.out.WriteByte(',')
		}
		first = false
		if isQuote(c) {
			p.parseString()
		} else if !p.parseUnquoted(true) {
			p.setError("Object key expected", p.i)
			return
		}
		p.skipSpace()
		if p.peek() == ':' {
			p.i++
		}
		p.out.WriteByte(':')
		p.skipSpace()
		if p.eof() || p.peek() == ',' || p.peek() == '}' || !p.parseValue() {
			if p.err != nil {
				return
			}
			p.out.WriteString("null")
		}
	}
}

func (p *parser) parseArray() {
	p.i++
	p.out.WriteByte('[')
	first := true
	for {
		p.skipSpace()
		if p.eof() {
			p.out.WriteByte(']')
			return
		}
		c := p.peek()
		if c == ']' || c == '}' {
			p.i++
			p.out.WriteByte(']')
			return
		}
		if c == ',' {
			p.i++
			continue
		}
		if !first {
			p.out.WriteByte(',')
		}
		first = false
		if !p.parseValue() {
			if p.err != nil {
				return
			}
			p.setError("Unexpected character "+quote(string(p.peek())), p.i)
			return
		}
	}
}

func isQuote(c rune) bool {
	switch c {
	case '"', '\'', '“', '”', '‘', '’', '`':
		return true
	}
	return false
}

func closingQuote(open rune) func(rune) bool {
	switch open {
	case '“', '”':
		return func(c rune) bool { return c == '“' || c == '”' }
	case '‘', '’':
		return func(c rune) bool { return c == '‘' || c == '’' }
	}
	return func(c rune) bool { return c == open }
}

func (p *parser) parseString() {
	isEnd := closingQuote(p.peek())
	p.i++
	var sb strings.Builder
	for !p.eof() {
		c := p.peek()
		if isEnd(c) {
			p.i++
			p.out.WriteString(quote(sb.String()))
			return
		}
		if c == '\\' && p.i+1 < len(p.text) {
			next := p.text[p.i+1]
			switch next {
			case '"', '\\', '/', '\'':
				sb.WriteRune(next)
				p.i += 2
				continue
			case 'b', 'f', 'n', 'r', 't', 'u':
				// Let the JSON decoder resolve standard escapes.
				if decoded, n, ok := p.decodeEscape(); ok {
					sb.WriteString(decoded)
					p.i += n
					continue
				}
			}
			sb.WriteRune(next)
			p.i += 2
			continue
		}
		sb.WriteRune(c)
		p.i++
	}
	// Unclosed string: take everything up to the end.
	p.out.WriteString(quote(sb.String()))
}

func (p *parser) decodeEscape() (string, int, bool) {
	n := 2
	if p.text[p.i+1] == 'u' {
		n = 6
		if p.i+n > len(p.text) {
			return "", 0, false
		}
		// Surrogate pair.
		if p.i+12 <= len(p.text) && p.text[p.i+6] == '\\' && p.text[p.i+7] == 'u' {
			var s string
			if json.Unmarshal([]byte(`"`+string(p.text[p.i:p.i+12])+`"`), &s) == nil && !strings.ContainsRune(s, unicode.ReplacementChar) {
				return s, 12, true
			}
		}
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+string(p.text[p.i:p.i+n])+`"`), &s); err != nil {
		return "", 0, false
	}
	return s, n, true
}

func (p *parser) parseNumber() {
	start := p.i
	for !p.eof() && strings.ContainsRune("+-.0123456789eE", p.peek()) {
		p.i++
	}
	if !p.eof() && !isDelimiter(p.peek()) {
		// Something like 2024-01-01T10:00 or 12px: not a number.
		p.i = start
		p.parseUnquoted(false)
		return
	}
	num := string(p.text[start:p.i])
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	} else if strings.HasPrefix(num, "-.") {
		num = "-0" + num[1:]
	}
	if strings.HasSuffix(num, ".") || strings.HasSuffix(num, "-") ||
		strings.HasSuffix(num, "+") || strings.HasSuffix(num, "e") || strings.HasSuffix(num, "E") {
		num += "0"
	}
	if !json.Valid([]byte(num)) {
		p.out.WriteString(quote(num))
		return
	}
	p.out.WriteString(num)
}

func isDelimiter(c rune) bool {
	return unicode.IsSpace(c) || strings.ContainsRune(",:]}/", c)
}

var keywords = map[string]string{
	"true":      "true",
	"True":      "true",
	"TRUE":      "true",
	"false":     "false",
	"False":     "false",
	"FALSE":     "false",
	"null":      "null",
	"None":      "null",
	"NULL":      "null",
	"undefined": "null",
	"NaN":       "null",
}

// parseUnquoted reads a bare word. Keys stop at a colon or a closing
// bracket; values stop at a comma, a closing bracket or a newline.
func (p *parser) parseUnquoted(isKey bool) bool {
	start := p.i
	for !p.eof() {
		c := p.peek()
		if c == ',' || c == '}' || c == ']' || c == '\n' {
			break
		}
		if isKey && (c == ':' || unicode.IsSpace(c)) {
			break
		}
		p.i++
	}
	word := strings.TrimSpace(string(p.text[start:p.i]))
	if word == "" {
		return false
	}
	if kw, ok := keywords[word]; ok && !isKey {
		p.out.WriteString(kw)
		return true
	}
	p.out.WriteString(quote(word))
	return true
}

func (p *parser) setError(message string, position int) {
	if p.err == nil {
		p.err = &Error{Message: message, Position: position}
	}
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
