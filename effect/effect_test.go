// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"errors"
	"strings"
	"testing"
)

// recordingEffect logs every dispatch and probes the host from inside
// its entry point.
type recordingEffect struct {
	magic      uint32
	flags      Flags
	dispatches []Opcode
	values     []int64
	parameters map[int32]float32

	versionDuringEntry int64
	processed          string
}

func (r *recordingEffect) Magic() uint32   { return r.magic }
func (r *recordingEffect) Flags() Flags    { return r.flags }
func (r *recordingEffect) UniqueID() int32 { return 4242 }
func (r *recordingEffect) Dispatch(opcode Opcode, index int32, value int64, opt float32) int64 {
	r.dispatches = append(r.dispatches, opcode)
	r.values = append(r.values, value)
	return 0
}
func (r *recordingEffect) Process(inputs, outputs [][]float32, sampleCount int) {
	r.processed = "process"
	for _, output := range outputs {
		for i := range sampleCount {
			output[i] += 1
		}
	}
}
func (r *recordingEffect) ProcessReplacing(inputs, outputs [][]float32, sampleCount int) {
	r.processed = "replacing"
}
func (r *recordingEffect) GetParameter(index int32) float32 { return r.parameters[index] }
func (r *recordingEffect) SetParameter(index int32, value float32) {
	r.parameters[index] = value
}

type staticLoader map[string]EntryPoint

func (s staticLoader) Load(path string) (EntryPoint, error) {
	entry, ok := s[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return entry, nil
}

func TestOpenDispatchesOpenAndAttaches(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	context := NewHostContext()
	var created *recordingEffect
	var capturedHandle Handle
	var capturedHost HostCallback
	loader := staticLoader{"fx": func(handle Handle, host HostCallback) Effect {
		created = &recordingEffect{magic: Magic, flags: FlagCanReplacing, parameters: map[int32]float32{}}
		// The host is not attached yet: every query answers 0.
		created.versionDuringEntry = host(handle, HostVersion, 0, 0, 0)
		capturedHandle, capturedHost = handle, host
		return created
	}}

	instance, err := Open(loader, registry, context, "fx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if created.versionDuringEntry != 0 {
		t.Errorf("host version during entry = %d, want 0", created.versionDuringEntry)
	}
	if got := capturedHost(capturedHandle, HostVersion, 0, 0, 0); got != HostVersionNumber {
		t.Errorf("host version after attach = %d, want %d", got, HostVersionNumber)
	}
	if got := capturedHost(capturedHandle, HostCurrentID, 0, 0, 0); got != 4242 {
		t.Errorf("current id = %d, want 4242", got)
	}
	if len(created.dispatches) != 1 || created.dispatches[0] != OpOpen {
		t.Errorf("dispatches = %v, want [open]", created.dispatches)
	}
	if instance.Handle() != capturedHandle {
		t.Errorf("Handle() = %d, want %d", instance.Handle(), capturedHandle)
	}

	instance.Close()
	instance.Close()
	want := []Opcode{OpOpen, OpMainsChanged, OpClose}
	if len(created.dispatches) != len(want) {
		t.Fatalf("dispatches after Close = %v, want %v", created.dispatches, want)
	}
	for i := range want {
		if created.dispatches[i] != want[i] {
			t.Errorf("dispatch %d = %s, want %s", i, created.dispatches[i], want[i])
		}
	}
	if created.values[1] != 0 {
		t.Errorf("mains changed value on close = %d, want 0", created.values[1])
	}
	if got := capturedHost(capturedHandle, HostVersion, 0, 0, 0); got != 0 {
		t.Errorf("host version after release = %d, want 0", got)
	}
}

func TestOpenFailures(t *testing.T) {
	t.Parallel()

	loader := staticLoader{
		"nil":   func(Handle, HostCallback) Effect { return nil },
		"magic": func(Handle, HostCallback) Effect { return &recordingEffect{magic: 0xdeadbeef} },
		"panic": func(Handle, HostCallback) Effect { panic("boom") },
	}
	tests := []struct {
		path    string
		message string
	}{
		{"missing.dll", "module could not be opened"},
		{"nil", "returned no effect"},
		{"magic", "invalid effect magic 0xdeadbeef"},
		{"panic", "panic: boom"},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			t.Parallel()
			registry := NewRegistry()
			_, err := Open(loader, registry, NewHostContext(), test.path)
			var loadError *LoadError
			if !errors.As(err, &loadError) {
				t.Fatalf("Open(%s) = %v, want *LoadError", test.path, err)
			}
			if !strings.Contains(err.Error(), test.message) {
				t.Errorf("Open(%s) error %q, want it to contain %q", test.path, err.Error(), test.message)
			}
		})
	}
}

func TestInstanceSettersReachHostContext(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	context := NewHostContext()
	var created *recordingEffect
	loader := staticLoader{"fx": func(Handle, HostCallback) Effect {
		created = &recordingEffect{magic: Magic, parameters: map[int32]float32{}}
		return created
	}}
	instance, err := Open(loader, registry, context, "fx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := context.Answer(HostGetSampleRate, 0, 0, 0); got != 44100 {
		t.Errorf("default sample rate = %d, want 44100", got)
	}
	instance.SetSampleRate(48000)
	instance.SetBlockSize(256)
	instance.SetActive(true)
	if got := context.Answer(HostGetSampleRate, 0, 0, 0); got != 48000 {
		t.Errorf("sample rate = %d, want 48000", got)
	}
	if got := context.Answer(HostGetBlockSize, 0, 0, 0); got != 256 {
		t.Errorf("block size = %d, want 256", got)
	}
	if got := context.Answer(HostGetNumAudioOuts, 0, 0, 0); got != 2 {
		t.Errorf("audio outs = %d, want 2", got)
	}
	if got := context.Answer(HostIdle, 0, 0, 0); got != 0 {
		t.Errorf("unsupported opcode = %d, want 0", got)
	}
	if !instance.Active() {
		t.Error("Active() = false after SetActive(true)")
	}
	if last := created.values[len(created.values)-1]; last != 1 {
		t.Errorf("mains changed value = %d, want 1", last)
	}

	instance.SetParameter(3, 0.75)
	if got := instance.GetParameter(3); got != 0.75 {
		t.Errorf("GetParameter(3) = %v, want 0.75", got)
	}
}

func TestProcessPicksReplacingOrAccumulating(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	accumulating := &recordingEffect{magic: Magic, parameters: map[int32]float32{}}
	loader := staticLoader{"fx": func(Handle, HostCallback) Effect { return accumulating }}
	instance, err := Open(loader, registry, NewHostContext(), "fx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Stale data in the outputs must not leak into an accumulating
	// effect's result.
	outputs := [][]float32{{5, 5}, {5, 5}}
	instance.Process([][]float32{{0, 0}, {0, 0}}, outputs, 2)
	if accumulating.processed != "process" {
		t.Errorf("processed via %q, want process", accumulating.processed)
	}
	for ch := range outputs {
		for i := range outputs[ch] {
			if outputs[ch][i] != 1 {
				t.Errorf("output[%d][%d] = %v, want 1", ch, i, outputs[ch][i])
			}
		}
	}

	accumulating.flags = FlagCanReplacing
	instance.Process(nil, outputs, 2)
	if accumulating.processed != "replacing" {
		t.Errorf("processed via %q, want replacing", accumulating.processed)
	}
}

func TestRegistryUnknownHandle(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if got := registry.Callback(99, HostVersion, 0, 0, 0); got != 0 {
		t.Errorf("Callback on unknown handle = %d, want 0", got)
	}
	first, second := registry.Reserve(), registry.Reserve()
	if first == second {
		t.Errorf("Reserve returned %d twice", first)
	}
}
