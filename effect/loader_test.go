// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestBuiltinLoader(t *testing.T) {
	t.Parallel()

	loader := NewBuiltinLoader(nil)
	for _, name := range []string{"passthrough", "gain", "polarity"} {
		entry, err := loader.Load(BuiltinScheme + name)
		if err != nil {
			t.Errorf("Load(%s): %v", name, err)
			continue
		}
		if effect := entry(1, func(Handle, HostOpcode, int32, int64, float32) int64 { return 0 }); effect.Magic() != Magic {
			t.Errorf("%s magic = 0x%08x", name, effect.Magic())
		}
	}

	if _, err := loader.Load("builtin:reverb"); err == nil {
		t.Error("Load(builtin:reverb) = nil error")
	}
	if _, err := loader.Load("/opt/fx.so"); !errors.Is(err, ErrNotHandled) {
		t.Errorf("Load(/opt/fx.so) = %v, want ErrNotHandled", err)
	}
}

func TestChainLoader(t *testing.T) {
	t.Parallel()

	chain := DefaultLoader()
	if _, err := chain.Load("builtin:gain"); err != nil {
		t.Errorf("Load(builtin:gain): %v", err)
	}

	_, err := chain.Load(filepath.Join(t.TempDir(), "missing.so"))
	if err == nil {
		t.Fatal("Load of a missing shared object = nil error")
	}
	if errors.Is(err, ErrNotHandled) {
		t.Errorf("missing shared object reported as not handled: %v", err)
	}

	if _, err := (ChainLoader{}).Load("anything"); err == nil {
		t.Error("empty chain = nil error")
	}
}

func TestPluginLoaderSkipsBuiltins(t *testing.T) {
	t.Parallel()

	if _, err := (PluginLoader{}).Load("builtin:gain"); !errors.Is(err, ErrNotHandled) {
		t.Errorf("PluginLoader.Load(builtin:gain) = %v, want ErrNotHandled", err)
	}
}

func TestAsEntryPoint(t *testing.T) {
	t.Parallel()

	var function func(Handle, HostCallback) Effect = NewPassthrough
	variable := EntryPoint(NewGain)
	for name, symbol := range map[string]any{
		"function":         function,
		"variable pointer": &variable,
	} {
		if asEntryPoint(symbol) == nil {
			t.Errorf("asEntryPoint(%s) = nil", name)
		}
	}
	if asEntryPoint(42) != nil {
		t.Error("asEntryPoint(int) != nil")
	}
}
