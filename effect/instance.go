// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import "fmt"

// LoadError reports why a module could not be loaded. Its message is
// what the worker returns to the host.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load effect %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load effect %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Instance is an opened effect attached to a host context.
type Instance struct {
	path     string
	handle   Handle
	effect   Effect
	context  *HostContext
	registry *Registry
	active   bool
	closed   bool
}

// Open resolves path with loader, constructs the effect, validates its
// magic, attaches context, and dispatches Open.
func Open(loader Loader, registry *Registry, context *HostContext, path string) (*Instance, error) {
	entry, err := loader.Load(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "module could not be opened", Err: err}
	}
	if entry == nil {
		return nil, &LoadError{Path: path, Reason: "entry point not found"}
	}

	handle := registry.Reserve()
	effect, err := construct(entry, handle, registry.Callback)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "entry point failed", Err: err}
	}
	if effect == nil {
		return nil, &LoadError{Path: path, Reason: "entry point returned no effect"}
	}
	if magic := effect.Magic(); magic != Magic {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("invalid effect magic 0x%08x", magic)}
	}

	context.setEffect(effect)
	registry.Attach(handle, context)

	instance := &Instance{
		path:     path,
		handle:   handle,
		effect:   effect,
		context:  context,
		registry: registry,
	}
	instance.dispatch(OpOpen, 0, 0, 0)
	return instance, nil
}

// construct runs entry, converting a panic into an error so a broken
// module cannot take the worker down.
func construct(entry EntryPoint, handle Handle, host HostCallback) (effect Effect, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return entry(handle, host), nil
}

// Path returns the path the instance was loaded from.
func (i *Instance) Path() string { return i.path }

// Handle returns the instance's callback handle.
func (i *Instance) Handle() Handle { return i.handle }

// Effect returns the underlying effect.
func (i *Instance) Effect() Effect { return i.effect }

// Active reports whether processing is switched on.
func (i *Instance) Active() bool { return i.active }

func (i *Instance) dispatch(opcode Opcode, index int32, value int64, opt float32) int64 {
	if i.closed {
		return 0
	}
	return i.effect.Dispatch(opcode, index, value, opt)
}

// SetSampleRate informs both the module and the host context.
func (i *Instance) SetSampleRate(sampleRate float64) {
	i.context.SetSampleRate(sampleRate)
	i.dispatch(OpSetSampleRate, 0, 0, float32(sampleRate))
}

// SetBlockSize informs both the module and the host context.
func (i *Instance) SetBlockSize(blockSize int32) {
	i.context.SetBlockSize(blockSize)
	i.dispatch(OpSetBlockSize, 0, int64(blockSize), 0)
}

// SetActive switches processing on or off (mains changed).
func (i *Instance) SetActive(active bool) {
	var value int64
	if active {
		value = 1
	}
	i.dispatch(OpMainsChanged, 0, value, 0)
	i.active = active
}

// SetParameter forwards to the effect.
func (i *Instance) SetParameter(index int32, value float32) {
	i.effect.SetParameter(index, value)
}

// GetParameter forwards to the effect.
func (i *Instance) GetParameter(index int32) float32 {
	return i.effect.GetParameter(index)
}

// Process runs one block. outputs are fully overwritten: effects that
// only accumulate see zeroed outputs.
func (i *Instance) Process(inputs, outputs [][]float32, sampleCount int) {
	if i.effect.Flags()&FlagCanReplacing != 0 {
		i.effect.ProcessReplacing(inputs, outputs, sampleCount)
		return
	}
	for _, output := range outputs {
		clear(output[:sampleCount])
	}
	i.effect.Process(inputs, outputs, sampleCount)
}

// Close switches processing off, dispatches Close, and releases the
// handle. It is safe to call more than once.
func (i *Instance) Close() {
	if i.closed {
		return
	}
	i.dispatch(OpMainsChanged, 0, 0, 0)
	i.dispatch(OpClose, 0, 0, 0)
	i.active = false
	i.closed = true
	i.registry.Release(i.handle)
	i.context.setEffect(nil)
}
