// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import "fmt"

// Magic is the value every valid effect reports from Effect.Magic:
// the ASCII bytes "VstP" read as a big-endian uint32.
const Magic uint32 = 'V'<<24 | 's'<<16 | 't'<<8 | 'P'

// Opcode selects an operation in Effect.Dispatch. The values follow the
// legacy dispatcher numbering.
type Opcode int32

const (
	OpOpen          Opcode = 0
	OpClose         Opcode = 1
	OpSetSampleRate Opcode = 10
	OpSetBlockSize  Opcode = 11
	OpMainsChanged  Opcode = 12
)

func (o Opcode) String() string {
	switch o {
	case OpOpen:
		return "open"
	case OpClose:
		return "close"
	case OpSetSampleRate:
		return "set_sample_rate"
	case OpSetBlockSize:
		return "set_block_size"
	case OpMainsChanged:
		return "mains_changed"
	default:
		return fmt.Sprintf("opcode(%d)", int32(o))
	}
}

// Flags describes effect capabilities.
type Flags uint32

const (
	FlagHasEditor     Flags = 1 << 0
	FlagCanReplacing  Flags = 1 << 4
	FlagProgramChunks Flags = 1 << 5
)

// Effect is a loaded effect module instance.
//
// Dispatch follows the legacy convention: Open and Close take no
// arguments, SetSampleRate passes the rate in opt, SetBlockSize passes
// the size in value, and MainsChanged passes 1 (on) or 0 (off) in value.
//
// ProcessReplacing overwrites outputs. Process adds into outputs; the
// caller zeroes them first. Both receive sampleCount samples per channel.
type Effect interface {
	Magic() uint32
	Flags() Flags
	UniqueID() int32
	Dispatch(opcode Opcode, index int32, value int64, opt float32) int64
	Process(inputs, outputs [][]float32, sampleCount int)
	ProcessReplacing(inputs, outputs [][]float32, sampleCount int)
	GetParameter(index int32) float32
	SetParameter(index int32, value float32)
}

// HostOpcode selects a host query made through a [HostCallback].
type HostOpcode int32

const (
	HostAutomate HostOpcode = iota
	HostVersion
	HostCurrentID
	HostIdle
	HostGetSampleRate
	HostGetBlockSize
	HostGetNumAudioIns
	HostGetNumAudioOuts
)

// HostCallback is how a module queries the host. handle is the value
// the module received in its entry point.
type HostCallback func(handle Handle, opcode HostOpcode, index int32, value int64, opt float32) int64

// EntryPoint constructs an effect. It returns nil when the module cannot
// initialize.
type EntryPoint func(handle Handle, host HostCallback) Effect

// Entry point symbol names, in lookup order.
const (
	SymbolMain       = "Main"
	SymbolPluginMain = "VSTPluginMain"
)
