// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"fmt"
	"plugin"
	"strings"
)

// ErrNotHandled is returned by a Loader for paths outside its scheme.
// [ChainLoader] moves on to the next loader when it sees it.
var ErrNotHandled = errors.New("effect: path not handled by this loader")

// Loader resolves a module path to its entry point.
type Loader interface {
	Load(path string) (EntryPoint, error)
}

// PluginLoader opens Go plugin shared objects. A module exports either a
// function or a variable of type EntryPoint under [SymbolMain] or
// [SymbolPluginMain].
//
// Go cannot unload a plugin; an unloaded module stays mapped until the
// worker exits.
type PluginLoader struct{}

// Load implements [Loader].
func (PluginLoader) Load(path string) (EntryPoint, error) {
	if strings.HasPrefix(path, BuiltinScheme) {
		return nil, ErrNotHandled
	}
	module, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{SymbolMain, SymbolPluginMain} {
		symbol, err := module.Lookup(name)
		if err != nil {
			continue
		}
		if entry := asEntryPoint(symbol); entry != nil {
			return entry, nil
		}
		return nil, fmt.Errorf("symbol %s has type %T, not an entry point", name, symbol)
	}
	return nil, fmt.Errorf("neither %s nor %s is exported", SymbolMain, SymbolPluginMain)
}

func asEntryPoint(symbol plugin.Symbol) EntryPoint {
	switch entry := symbol.(type) {
	case func(Handle, HostCallback) Effect:
		return entry
	case EntryPoint:
		return entry
	case *EntryPoint:
		if entry != nil {
			return *entry
		}
	case *func(Handle, HostCallback) Effect:
		if entry != nil {
			return *entry
		}
	}
	return nil
}

// BuiltinScheme prefixes the paths of modules compiled into the worker.
const BuiltinScheme = "builtin:"

// BuiltinLoader serves modules compiled into the worker, addressed as
// "builtin:<name>".
type BuiltinLoader struct {
	modules map[string]EntryPoint
}

// NewBuiltinLoader returns a loader serving passthrough, gain, and
// polarity plus any extra modules given.
func NewBuiltinLoader(extra map[string]EntryPoint) *BuiltinLoader {
	modules := map[string]EntryPoint{
		"passthrough": NewPassthrough,
		"gain":        NewGain,
		"polarity":    NewPolarity,
	}
	for name, entry := range extra {
		modules[name] = entry
	}
	return &BuiltinLoader{modules: modules}
}

// Load implements [Loader].
func (l *BuiltinLoader) Load(path string) (EntryPoint, error) {
	name, ok := strings.CutPrefix(path, BuiltinScheme)
	if !ok {
		return nil, ErrNotHandled
	}
	entry, ok := l.modules[name]
	if !ok {
		return nil, fmt.Errorf("no built-in effect named %q", name)
	}
	return entry, nil
}

// ChainLoader tries each loader in order and returns the first result
// that is not [ErrNotHandled].
type ChainLoader []Loader

// Load implements [Loader].
func (c ChainLoader) Load(path string) (EntryPoint, error) {
	for _, loader := range c {
		entry, err := loader.Load(path)
		if errors.Is(err, ErrNotHandled) {
			continue
		}
		return entry, err
	}
	return nil, fmt.Errorf("no loader handles %q", path)
}

// DefaultLoader serves built-in modules and Go plugins.
func DefaultLoader() Loader {
	return ChainLoader{NewBuiltinLoader(nil), PluginLoader{}}
}
