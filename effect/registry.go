// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import "sync"

// Handle identifies one effect instance to the host callback.
type Handle uint64

// HostVersionNumber is the host version reported to modules.
const HostVersionNumber = 2400

// HostContext answers host callbacks for one effect instance. Modules
// may call the host from their own goroutines.
type HostContext struct {
	mu         sync.Mutex
	sampleRate float64
	blockSize  int32
	effect     Effect
}

// NewHostContext returns a context reporting the default sample rate of
// 44100 Hz and block size of 512 until told otherwise.
func NewHostContext() *HostContext {
	return &HostContext{sampleRate: 44100, blockSize: 512}
}

// SetSampleRate records the rate reported to the module.
func (h *HostContext) SetSampleRate(sampleRate float64) {
	h.mu.Lock()
	h.sampleRate = sampleRate
	h.mu.Unlock()
}

// SetBlockSize records the block size reported to the module.
func (h *HostContext) SetBlockSize(blockSize int32) {
	h.mu.Lock()
	h.blockSize = blockSize
	h.mu.Unlock()
}

func (h *HostContext) setEffect(effect Effect) {
	h.mu.Lock()
	h.effect = effect
	h.mu.Unlock()
}

// Answer returns the host's reply to opcode. Unsupported queries get 0.
func (h *HostContext) Answer(opcode HostOpcode, index int32, value int64, opt float32) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch opcode {
	case HostVersion:
		return HostVersionNumber
	case HostCurrentID:
		if h.effect == nil {
			return 0
		}
		return int64(h.effect.UniqueID())
	case HostGetSampleRate:
		return int64(h.sampleRate)
	case HostGetBlockSize:
		return int64(h.blockSize)
	case HostGetNumAudioIns, HostGetNumAudioOuts:
		return 2
	default:
		return 0
	}
}

// Registry maps handles to host contexts.
type Registry struct {
	mu       sync.Mutex
	next     Handle
	contexts map[Handle]*HostContext
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[Handle]*HostContext)}
}

// Reserve allocates a handle with no context attached. Callbacks on it
// return 0 until [Registry.Attach].
func (r *Registry) Reserve() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.next
}

// Attach binds context to handle.
func (r *Registry) Attach(handle Handle, context *HostContext) {
	r.mu.Lock()
	r.contexts[handle] = context
	r.mu.Unlock()
}

// Release unbinds handle. Later callbacks on it return 0.
func (r *Registry) Release(handle Handle) {
	r.mu.Lock()
	delete(r.contexts, handle)
	r.mu.Unlock()
}

// Lookup returns the context bound to handle.
func (r *Registry) Lookup(handle Handle) (*HostContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	context, ok := r.contexts[handle]
	return context, ok
}

// Callback is the [HostCallback] handed to every module.
func (r *Registry) Callback(handle Handle, opcode HostOpcode, index int32, value int64, opt float32) int64 {
	context, ok := r.Lookup(handle)
	if !ok {
		return 0
	}
	return context.Answer(opcode, index, value, opt)
}
