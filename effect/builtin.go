// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import "sync"

// Unique IDs of the built-in modules.
const (
	PassthroughID int32 = 'E'<<24 | 'B'<<16 | 'p'<<8 | 't'
	GainID        int32 = 'E'<<24 | 'B'<<16 | 'g'<<8 | 'n'
	PolarityID    int32 = 'E'<<24 | 'B'<<16 | 'p'<<8 | 'l'
)

// builtinEffect carries the state shared by the built-in modules.
type builtinEffect struct {
	handle   Handle
	host     HostCallback
	uniqueID int32
	flags    Flags

	mu         sync.Mutex
	parameters []float32
	open       bool
	active     bool
	sampleRate float64
	blockSize  int32
}

func newBuiltin(handle Handle, host HostCallback, uniqueID int32, flags Flags, parameters ...float32) *builtinEffect {
	return &builtinEffect{
		handle:     handle,
		host:       host,
		uniqueID:   uniqueID,
		flags:      flags,
		parameters: parameters,
	}
}

func (b *builtinEffect) Magic() uint32   { return Magic }
func (b *builtinEffect) Flags() Flags    { return b.flags }
func (b *builtinEffect) UniqueID() int32 { return b.uniqueID }

func (b *builtinEffect) Dispatch(opcode Opcode, index int32, value int64, opt float32) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch opcode {
	case OpOpen:
		b.open = true
		// Seed from the host until the first explicit set.
		b.sampleRate = float64(b.host(b.handle, HostGetSampleRate, 0, 0, 0))
		b.blockSize = int32(b.host(b.handle, HostGetBlockSize, 0, 0, 0))
	case OpClose:
		b.open = false
	case OpSetSampleRate:
		b.sampleRate = float64(opt)
	case OpSetBlockSize:
		b.blockSize = int32(value)
	case OpMainsChanged:
		b.active = value != 0
	default:
		return 0
	}
	return 1
}

func (b *builtinEffect) GetParameter(index int32) float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || int(index) >= len(b.parameters) {
		return 0
	}
	return b.parameters[index]
}

func (b *builtinEffect) SetParameter(index int32, value float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || int(index) >= len(b.parameters) {
		return
	}
	b.parameters[index] = value
}

// input returns channel ch of inputs, or nil when the host sent fewer
// channels.
func input(inputs [][]float32, ch int) []float32 {
	if ch < len(inputs) {
		return inputs[ch]
	}
	return nil
}

type passthrough struct {
	*builtinEffect
}

// NewPassthrough copies each input channel to the matching output.
// Outputs without a matching input are silent.
func NewPassthrough(handle Handle, host HostCallback) Effect {
	return &passthrough{newBuiltin(handle, host, PassthroughID, FlagCanReplacing)}
}

func (p *passthrough) ProcessReplacing(inputs, outputs [][]float32, sampleCount int) {
	for ch, output := range outputs {
		source := input(inputs, ch)
		if source == nil {
			clear(output[:sampleCount])
			continue
		}
		copy(output[:sampleCount], source[:sampleCount])
	}
}

func (p *passthrough) Process(inputs, outputs [][]float32, sampleCount int) {
	for ch, output := range outputs {
		source := input(inputs, ch)
		for i := 0; source != nil && i < sampleCount; i++ {
			output[i] += source[i]
		}
	}
}

type gain struct {
	*builtinEffect
}

// NewGain scales every channel. Parameter 0 is the normalized gain:
// 0 is silence, 0.5 is unity, 1 is +6 dB.
func NewGain(handle Handle, host HostCallback) Effect {
	return &gain{newBuiltin(handle, host, GainID, FlagCanReplacing, 0.5)}
}

func (g *gain) factor() float32 {
	return 2 * g.GetParameter(0)
}

func (g *gain) ProcessReplacing(inputs, outputs [][]float32, sampleCount int) {
	factor := g.factor()
	for ch, output := range outputs {
		source := input(inputs, ch)
		for i := range sampleCount {
			if source == nil {
				output[i] = 0
				continue
			}
			output[i] = source[i] * factor
		}
	}
}

func (g *gain) Process(inputs, outputs [][]float32, sampleCount int) {
	factor := g.factor()
	for ch, output := range outputs {
		source := input(inputs, ch)
		for i := 0; source != nil && i < sampleCount; i++ {
			output[i] += source[i] * factor
		}
	}
}

type polarity struct {
	*builtinEffect
}

// NewPolarity inverts every channel. It only implements the
// accumulating Process, so hosts must zero outputs first.
func NewPolarity(handle Handle, host HostCallback) Effect {
	return &polarity{newBuiltin(handle, host, PolarityID, 0)}
}

func (p *polarity) ProcessReplacing(inputs, outputs [][]float32, sampleCount int) {
	// Not advertised through FlagCanReplacing.
	for _, output := range outputs {
		clear(output[:sampleCount])
	}
	p.Process(inputs, outputs, sampleCount)
}

func (p *polarity) Process(inputs, outputs [][]float32, sampleCount int) {
	for ch, output := range outputs {
		source := input(inputs, ch)
		for i := 0; source != nil && i < sampleCount; i++ {
			output[i] -= source[i]
		}
	}
}
