// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Payload is a message body. Each concrete payload type corresponds to
// exactly one [MessageType].
type Payload interface {
	Type() MessageType
	appendTo(buffer []byte) []byte
	encodedSize() int
}

// LoadPluginPayload asks the worker to load the effect module at Path.
// Paths longer than 511 bytes are truncated on a rune boundary.
type LoadPluginPayload struct {
	Path string
}

func (LoadPluginPayload) Type() MessageType { return LoadPlugin }
func (LoadPluginPayload) encodedSize() int  { return PathSize }
func (p LoadPluginPayload) appendTo(buffer []byte) []byte {
	return appendFixedString(buffer, p.Path, PathSize)
}

// UnloadPluginPayload asks the worker to close and release the effect.
type UnloadPluginPayload struct{}

func (UnloadPluginPayload) Type() MessageType             { return UnloadPlugin }
func (UnloadPluginPayload) encodedSize() int              { return 0 }
func (UnloadPluginPayload) appendTo(buffer []byte) []byte { return buffer }

// SetSampleRatePayload sets the effect's sample rate in Hz.
type SetSampleRatePayload struct {
	SampleRate float64
}

func (SetSampleRatePayload) Type() MessageType { return SetSampleRate }
func (SetSampleRatePayload) encodedSize() int  { return 8 }
func (p SetSampleRatePayload) appendTo(buffer []byte) []byte {
	return binary.LittleEndian.AppendUint64(buffer, math.Float64bits(p.SampleRate))
}

// SetBlockSizePayload sets the maximum samples per ProcessAudio call.
type SetBlockSizePayload struct {
	BlockSize int32
}

func (SetBlockSizePayload) Type() MessageType { return SetBlockSize }
func (SetBlockSizePayload) encodedSize() int  { return 4 }
func (p SetBlockSizePayload) appendTo(buffer []byte) []byte {
	return binary.LittleEndian.AppendUint32(buffer, uint32(p.BlockSize))
}

// ProcessAudioPayload carries one block of interleaved input audio.
// len(Input) must equal SampleCount*InputChannelCount.
type ProcessAudioPayload struct {
	SampleCount        int32
	InputChannelCount  int32
	OutputChannelCount int32
	Input              []float32
}

func (ProcessAudioPayload) Type() MessageType { return ProcessAudio }
func (p ProcessAudioPayload) encodedSize() int {
	return ProcessAudioPrefixSize + len(p.Input)*SampleSize
}
func (p ProcessAudioPayload) appendTo(buffer []byte) []byte {
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(p.SampleCount))
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(p.InputChannelCount))
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(p.OutputChannelCount))
	for _, sample := range p.Input {
		buffer = binary.LittleEndian.AppendUint32(buffer, math.Float32bits(sample))
	}
	return buffer
}

// ProcessMidiPayload is an opaque event block. The worker drains and
// rejects it.
type ProcessMidiPayload struct {
	Data []byte
}

func (ProcessMidiPayload) Type() MessageType               { return ProcessMidi }
func (p ProcessMidiPayload) encodedSize() int              { return len(p.Data) }
func (p ProcessMidiPayload) appendTo(buffer []byte) []byte { return append(buffer, p.Data...) }

// SetParameterPayload sets parameter Index to a normalized Value.
type SetParameterPayload struct {
	Index int32
	Value float32
}

func (SetParameterPayload) Type() MessageType { return SetParameter }
func (SetParameterPayload) encodedSize() int  { return 8 }
func (p SetParameterPayload) appendTo(buffer []byte) []byte {
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(p.Index))
	return binary.LittleEndian.AppendUint32(buffer, math.Float32bits(p.Value))
}

// GetParameterPayload reads parameter Index.
type GetParameterPayload struct {
	Index int32
}

func (GetParameterPayload) Type() MessageType { return GetParameter }
func (GetParameterPayload) encodedSize() int  { return 4 }
func (p GetParameterPayload) appendTo(buffer []byte) []byte {
	return binary.LittleEndian.AppendUint32(buffer, uint32(p.Index))
}

// SuspendPayload turns the effect's processing off (mains off).
type SuspendPayload struct{}

func (SuspendPayload) Type() MessageType             { return Suspend }
func (SuspendPayload) encodedSize() int              { return 0 }
func (SuspendPayload) appendTo(buffer []byte) []byte { return buffer }

// ResumePayload turns the effect's processing on (mains on).
type ResumePayload struct{}

func (ResumePayload) Type() MessageType             { return Resume }
func (ResumePayload) encodedSize() int              { return 0 }
func (ResumePayload) appendTo(buffer []byte) []byte { return buffer }

// ShutdownPayload asks the worker to release the effect and exit.
type ShutdownPayload struct{}

func (ShutdownPayload) Type() MessageType             { return Shutdown }
func (ShutdownPayload) encodedSize() int              { return 0 }
func (ShutdownPayload) appendTo(buffer []byte) []byte { return buffer }

// EncodePayload returns the body encoding of payload.
func EncodePayload(payload Payload) []byte {
	return payload.appendTo(make([]byte, 0, payload.encodedSize()))
}

// Encode returns header and body as one buffer. The header's DataSize is
// the body length.
func Encode(sequenceID uint32, payload Payload) []byte {
	size := payload.encodedSize()
	buffer := make([]byte, 0, HeaderSize+size)
	buffer = AppendHeader(buffer, Header{
		Type:       payload.Type(),
		DataSize:   uint32(size),
		SequenceID: sequenceID,
	})
	return payload.appendTo(buffer)
}

// DecodePayload decodes body as a payload of messageType. body must be
// exactly the declared body; a length mismatch is a [*FormatError].
func DecodePayload(messageType MessageType, body []byte) (Payload, error) {
	if !messageType.Valid() {
		return nil, &FormatError{Type: messageType, Reason: "unknown message type"}
	}
	if expected, fixed := ExpectedSize(messageType); fixed && len(body) != expected {
		return nil, &FormatError{Type: messageType, Reason: fmt.Sprintf("body is %d bytes, want %d", len(body), expected)}
	}

	switch messageType {
	case LoadPlugin:
		path, err := decodeFixedString(messageType, body)
		if err != nil {
			return nil, err
		}
		return LoadPluginPayload{Path: path}, nil
	case UnloadPlugin:
		return UnloadPluginPayload{}, nil
	case SetSampleRate:
		return SetSampleRatePayload{SampleRate: math.Float64frombits(binary.LittleEndian.Uint64(body))}, nil
	case SetBlockSize:
		return SetBlockSizePayload{BlockSize: int32(binary.LittleEndian.Uint32(body))}, nil
	case ProcessAudio:
		return decodeProcessAudio(body)
	case ProcessMidi:
		return ProcessMidiPayload{Data: bytes.Clone(body)}, nil
	case SetParameter:
		return SetParameterPayload{
			Index: int32(binary.LittleEndian.Uint32(body[0:4])),
			Value: math.Float32frombits(binary.LittleEndian.Uint32(body[4:8])),
		}, nil
	case GetParameter:
		return GetParameterPayload{Index: int32(binary.LittleEndian.Uint32(body))}, nil
	case Suspend:
		return SuspendPayload{}, nil
	case Resume:
		return ResumePayload{}, nil
	case Shutdown:
		return ShutdownPayload{}, nil
	case Response:
		response, err := DecodeResponse(body)
		if err != nil {
			return nil, err
		}
		return response, nil
	}
	return nil, &FormatError{Type: messageType, Reason: "unknown message type"}
}

// DecodeProcessAudioPrefix decodes the 12-byte fixed part of a
// ProcessAudio body.
func DecodeProcessAudioPrefix(prefix []byte) (sampleCount, inputChannelCount, outputChannelCount int32, err error) {
	if len(prefix) < ProcessAudioPrefixSize {
		return 0, 0, 0, &FormatError{Type: ProcessAudio, Reason: fmt.Sprintf("prefix is %d bytes, want %d", len(prefix), ProcessAudioPrefixSize)}
	}
	sampleCount = int32(binary.LittleEndian.Uint32(prefix[0:4]))
	inputChannelCount = int32(binary.LittleEndian.Uint32(prefix[4:8]))
	outputChannelCount = int32(binary.LittleEndian.Uint32(prefix[8:12]))
	if sampleCount < 0 || inputChannelCount < 0 || outputChannelCount < 0 {
		return 0, 0, 0, &FormatError{Type: ProcessAudio, Reason: fmt.Sprintf("negative count (samples %d, inputs %d, outputs %d)",
			sampleCount, inputChannelCount, outputChannelCount)}
	}
	return sampleCount, inputChannelCount, outputChannelCount, nil
}

func decodeProcessAudio(body []byte) (Payload, error) {
	sampleCount, inputChannelCount, outputChannelCount, err := DecodeProcessAudioPrefix(body)
	if err != nil {
		return nil, err
	}
	// int64 keeps hostile counts from overflowing the comparison.
	want := int64(ProcessAudioPrefixSize) + int64(sampleCount)*int64(inputChannelCount)*SampleSize
	if int64(len(body)) != want {
		return nil, &FormatError{Type: ProcessAudio, Reason: fmt.Sprintf("body is %d bytes, %d samples of %d channels need %d",
			len(body), sampleCount, inputChannelCount, want)}
	}
	tail := body[ProcessAudioPrefixSize:]
	input := make([]float32, len(tail)/SampleSize)
	for i := range input {
		input[i] = math.Float32frombits(binary.LittleEndian.Uint32(tail[i*SampleSize:]))
	}
	return ProcessAudioPayload{
		SampleCount:        sampleCount,
		InputChannelCount:  inputChannelCount,
		OutputChannelCount: outputChannelCount,
		Input:              input,
	}, nil
}

// appendFixedString appends s into a size-byte NUL-padded field,
// truncating on a rune boundary so at least one NUL remains.
func appendFixedString(buffer []byte, s string, size int) []byte {
	s = TruncateUTF8(s, size-1)
	buffer = append(buffer, s...)
	for range size - len(s) {
		buffer = append(buffer, 0)
	}
	return buffer
}

func decodeFixedString(messageType MessageType, field []byte) (string, error) {
	end := bytes.IndexByte(field, 0)
	if end < 0 {
		return "", &FormatError{Type: messageType, Reason: "string field is not NUL-terminated"}
	}
	return string(field[:end]), nil
}

// TruncateUTF8 returns the longest prefix of s that is at most maxBytes
// long and does not split a multi-byte rune.
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
