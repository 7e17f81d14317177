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
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a processor from its configuration.
type Factory func(cfg Config) (Processor, error)

// Registry maps processor types to factories. It is safe for concurrent
// use; registration usually happens at init time.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding every built-in processor type.
// Nested chains built by conditional, for_each and process_and_set
// processors resolve their types through the same registry.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[TypeToString] = newToString
	r.factories[TypeRegexReplace] = newRegexReplace
	r.factories[TypeRegexCapture] = newRegexCapture
	r.factories[TypeJSONPathFilter] = newJSONPathFilter
	r.factories[TypeExtractJSON] = newExtractJSON
	r.factories[TypeSetField] = newSetField
	r.factories[TypeRemoveJSONPath] = newRemoveJSONPath
	r.factories[TypeProcessAndSet] = func(cfg Config) (Processor, error) { return newProcessAndSet(r, cfg) }
	r.factories[TypeConditional] = func(cfg Config) (Processor, error) { return newConditional(r, cfg) }
	r.factories[TypeForEach] = func(cfg Config) (Processor, error) { return newForEach(r, cfg) }
	return r
}

// DefaultRegistry is used by the package level helpers.
var DefaultRegistry = NewRegistry()

// Register adds or replaces the factory for typ.
func (r *Registry) Register(typ string, factory Factory) error {
	if strings.TrimSpace(typ) == "" {
		return errors.New("processor: register: type is required")
	}
	if factory == nil {
		return fmt.Errorf("processor: register %s: factory is nil", typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = factory
	return nil
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds one processor.
func (r *Registry) Create(cfg Config) (Processor, error) {
	typ := cfg.Type()
	if typ == "" {
		return nil, &ConfigError{Field: "type", Reason: "is required", err: ErrUnknownType}
	}
	r.mu.RLock()
	factory, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigError{Type: typ, Field: "type", Reason: "is not a registered processor type", err: ErrUnknownType}
	}
	return factory(cfg)
}

// CreateChain builds a chain from configs. The first invalid config stops
// the build and its error names the config index.
func (r *Registry) CreateChain(configs []Config) (*Chain, error) {
	processors := make([]Processor, 0, len(configs))
	for i, cfg := range configs {
		p, err := r.Create(cfg)
		if err != nil {
			return nil, fmt.Errorf("processor config %d: %w", i, err)
		}
		processors = append(processors, p)
	}
	return NewChainOf(processors...), nil
}

// CreateChainFrom parses v with ParseConfigs and builds the chain.
func (r *Registry) CreateChainFrom(v any) (*Chain, error) {
	configs, err := ParseConfigs(v)
	if err != nil {
		return nil, err
	}
	return r.CreateChain(configs)
}

// Register adds a processor type to DefaultRegistry.
func Register(typ string, factory Factory) error {
	return DefaultRegistry.Register(typ, factory)
}

// Create builds one processor with DefaultRegistry.
func Create(cfg Config) (Processor, error) {
	return DefaultRegistry.Create(cfg)
}

// NewChain builds a chain with DefaultRegistry.
func NewChain(configs []Config) (*Chain, error) {
	return DefaultRegistry.CreateChain(configs)
}

// NewChainFrom parses v and builds a chain with DefaultRegistry.
func NewChainFrom(v any) (*Chain, error) {
	return DefaultRegistry.CreateChainFrom(v)
}
