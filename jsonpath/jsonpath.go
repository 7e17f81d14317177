//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package jsonpath reads, writes and deletes nodes of a JSON document
// addressed by JSONPath expressions.
//
// Expressions are compiled once. A compile error does not fail Compile; it
// is kept on the Path and returned by every operation, so the caller decides
// how to handle a malformed expression at evaluation time.
package jsonpath

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
)

var (
	// ErrPathNotFound is returned when a definite path addresses no node.
	ErrPathNotFound = errors.New("jsonpath: path not found")
	// ErrNotCreatable is returned by Set when a missing path cannot be created.
	ErrNotCreatable = errors.New("jsonpath: path cannot be created")
	// ErrRootDelete is returned when deleting the document root.
	ErrRootDelete = errors.New("jsonpath: cannot delete the root")
)

// Path is a compiled JSONPath expression.
type Path struct {
	raw  string
	expr jp.Expr
	err  error
}

// Compile compiles raw. It never fails: see Err.
func Compile(raw string) *Path {
	p := &Path{raw: raw}
	x, err := jp.ParseString(raw)
	if err != nil {
		p.err = fmt.Errorf("jsonpath: compile %q: %w", raw, err)
		return p
	}
	p.expr = x
	return p
}

// String returns the source expression.
func (p *Path) String() string { return p.raw }

// Err returns the compile error, if any.
func (p *Path) Err() error { return p.err }

// IsRoot reports whether the path addresses the document root.
func (p *Path) IsRoot() bool {
	return p.err == nil && len(trimMarkers(p.expr)) == 0
}

// IsDefinite reports whether the path addresses at most one node. Paths with
// wildcards, slices, unions, filters or recursive descent are indefinite.
func (p *Path) IsDefinite() bool {
	if p.err != nil {
		return false
	}
	for _, f := range p.expr {
		switch f.(type) {
		case jp.Root, jp.At, jp.Bracket, jp.Child, jp.Nth:
		default:
			return false
		}
	}
	return true
}

// Read evaluates the path against doc. A definite path returns the node
// itself or ErrPathNotFound. An indefinite path returns the list of matches,
// which may be empty.
func (p *Path) Read(doc any) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.IsDefinite() {
		v, ok := p.expr.FirstFound(doc)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p.raw)
		}
		return v, nil
	}
	matches := p.expr.Get(doc)
	if matches == nil {
		matches = []any{}
	}
	return matches, nil
}

// ReadSuppressed is Read with errors reported as nil.
func (p *Path) ReadSuppressed(doc any) any {
	v, err := p.Read(doc)
	if err != nil {
		return nil
	}
	return v
}

// Exists reports whether the path addresses at least one node of doc.
func (p *Path) Exists(doc any) bool {
	if p.err != nil {
		return false
	}
	return p.expr.Has(doc)
}

// Set writes v at the path and returns the updated document, which is a new
// root only when the path is the root itself. doc is modified in place.
//
// A missing path is created only when its last segment is a child key and
// the parent resolves to one or more objects; the key is added to each of
// them.
func (p *Path) Set(doc, v any) (any, error) {
	if p.err != nil {
		return doc, p.err
	}
	if p.IsRoot() {
		return v, nil
	}
	if p.expr.Has(doc) {
		if err := p.expr.Set(doc, v); err != nil {
			return doc, fmt.Errorf("jsonpath: set %s: %w", p.raw, err)
		}
		return doc, nil
	}
	return doc, p.create(doc, v)
}

func (p *Path) create(doc, v any) error {
	last, ok := p.expr[len(p.expr)-1].(jp.Child)
	if !ok {
		return fmt.Errorf("%w: %s does not end with a key", ErrNotCreatable, p.raw)
	}
	parents := []any{doc}
	if parent := trimMarkers(p.expr[:len(p.expr)-1]); len(parent) > 0 {
		parents = p.expr[:len(p.expr)-1].Get(doc)
	}
	created := 0
	for _, node := range parents {
		if m, ok := node.(map[string]any); ok {
			m[string(last)] = v
			created++
		}
	}
	if created == 0 {
		return fmt.Errorf("%w: parent of %s is not an object", ErrNotCreatable, p.raw)
	}
	return nil
}

// Delete removes the addressed node(s). Array elements are removed and the
// remaining elements shift down. The returned document replaces doc.
func (p *Path) Delete(doc any) (any, error) {
	if p.err != nil {
		return doc, p.err
	}
	if p.IsRoot() {
		return doc, ErrRootDelete
	}
	if !p.expr.Has(doc) {
		return doc, fmt.Errorf("%w: %s", ErrPathNotFound, p.raw)
	}
	if p.hasDescent() {
		return p.deleteLocated(doc)
	}
	out, err := p.expr.Remove(doc)
	if err != nil {
		return doc, fmt.Errorf("jsonpath: delete %s: %w", p.raw, err)
	}
	return out, nil
}

// deleteLocated removes every concrete location the path matches. ojg
// cannot remove through a descent fragment, so each match is removed on its
// own, last first, keeping the array indexes of earlier matches valid.
func (p *Path) deleteLocated(doc any) (any, error) {
	locs := p.expr.Locate(doc, 0)
	for i := len(locs) - 1; i >= 0; i-- {
		if len(trimMarkers(locs[i])) == 0 {
			continue
		}
		out, err := locs[i].Remove(doc)
		if err != nil {
			return doc, fmt.Errorf("jsonpath: delete %s at %s: %w", p.raw, locs[i], err)
		}
		doc = out
	}
	return doc, nil
}

func (p *Path) hasDescent() bool {
	for _, f := range p.expr {
		if _, ok := f.(jp.Descent); ok {
			return true
		}
	}
	return false
}

// StripTrailingWildcard returns the path without a final `[*]` or `.*`
// segment. Paths without one are returned unchanged.
func (p *Path) StripTrailingWildcard() *Path {
	if p.err != nil || len(p.expr) == 0 {
		return p
	}
	if _, ok := p.expr[len(p.expr)-1].(jp.Wildcard); !ok {
		return p
	}
	x := append(jp.Expr{}, p.expr[:len(p.expr)-1]...)
	if len(x) == 0 {
		x = jp.Expr{jp.Root('$')}
	}
	return &Path{raw: x.String(), expr: x}
}

// trimMarkers drops the fragments that address the starting node itself.
func trimMarkers(x jp.Expr) jp.Expr {
	for len(x) > 0 {
		switch x[0].(type) {
		case jp.Root, jp.At, jp.Bracket:
			x = x[1:]
		default:
			return x
		}
	}
	return x
}
