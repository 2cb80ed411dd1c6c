// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
)

// MessageType identifies a message. The numeric values are part of the
// wire format and must not be reordered.
type MessageType uint32

const (
	LoadPlugin MessageType = iota
	UnloadPlugin
	SetSampleRate
	SetBlockSize
	ProcessAudio
	ProcessMidi
	SetParameter
	GetParameter
	Suspend
	Resume
	Shutdown
	Response
)

var typeNames = [...]string{
	LoadPlugin:    "load_plugin",
	UnloadPlugin:  "unload_plugin",
	SetSampleRate: "set_sample_rate",
	SetBlockSize:  "set_block_size",
	ProcessAudio:  "process_audio",
	ProcessMidi:   "process_midi",
	SetParameter:  "set_parameter",
	GetParameter:  "get_parameter",
	Suspend:       "suspend",
	Resume:        "resume",
	Shutdown:      "shutdown",
	Response:      "response",
}

// String returns the lower_snake name of the type, used as a log value
// and metric label.
func (t MessageType) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t <= Response
}

const (
	// HeaderSize is the encoded size of a [Header].
	HeaderSize = 12

	// MaxBodySize caps DataSize. A 64 MiB body is far above any real
	// audio block (8192 samples of 64 channels is 2 MiB) and keeps a
	// corrupt header from driving a huge allocation.
	MaxBodySize = 64 << 20

	// PathSize is the fixed LoadPlugin path buffer, NUL included.
	PathSize = 512

	// ErrorMessageSize is the fixed Response error buffer, NUL included.
	ErrorMessageSize = 256

	// ResponseSize is the encoded size of a Response body.
	ResponseSize = 8 + ErrorMessageSize

	// ProcessAudioPrefixSize is the fixed part of a ProcessAudio body.
	ProcessAudioPrefixSize = 12

	// SampleSize is the encoded size of one float32 sample.
	SampleSize = 4
)

// Header precedes every message body.
type Header struct {
	Type       MessageType
	DataSize   uint32
	SequenceID uint32
}

// EncodeHeader returns the 12-byte encoding of header.
func EncodeHeader(header Header) []byte {
	return AppendHeader(make([]byte, 0, HeaderSize), header)
}

// AppendHeader appends the encoding of header to buffer.
func AppendHeader(buffer []byte, header Header) []byte {
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(header.Type))
	buffer = binary.LittleEndian.AppendUint32(buffer, header.DataSize)
	return binary.LittleEndian.AppendUint32(buffer, header.SequenceID)
}

// DecodeHeader decodes a header from the first [HeaderSize] bytes of
// data. It does not validate the type or size; see [ValidateHeader].
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &FormatError{Type: headerOnly, Reason: fmt.Sprintf("header is %d bytes, want %d", len(data), HeaderSize)}
	}
	return Header{
		Type:       MessageType(binary.LittleEndian.Uint32(data[0:4])),
		DataSize:   binary.LittleEndian.Uint32(data[4:8]),
		SequenceID: binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

// ExpectedSize returns the body size of a fixed-layout type. It returns
// false for ProcessAudio and ProcessMidi, whose size depends on content,
// and for unknown types.
func ExpectedSize(messageType MessageType) (int, bool) {
	switch messageType {
	case LoadPlugin:
		return PathSize, true
	case SetSampleRate:
		return 8, true
	case SetBlockSize:
		return 4, true
	case SetParameter:
		return 8, true
	case GetParameter:
		return 4, true
	case UnloadPlugin, Suspend, Resume, Shutdown:
		return 0, true
	case Response:
		return ResponseSize, true
	default:
		return 0, false
	}
}

// ProcessAudioSize returns the body size of a ProcessAudio request
// carrying sampleCount samples on each of inputChannelCount channels.
func ProcessAudioSize(sampleCount, inputChannelCount int) int {
	return ProcessAudioPrefixSize + sampleCount*inputChannelCount*SampleSize
}

// AudioTailSize returns the byte length of sampleCount samples on each
// of channelCount channels.
func AudioTailSize(sampleCount, channelCount int) int {
	return sampleCount * channelCount * SampleSize
}

// ValidateHeader rejects headers whose DataSize cannot belong to their
// type. A header that passes may still carry a body that fails
// [DecodePayload], for example a ProcessAudio whose counts disagree with
// its length.
func ValidateHeader(header Header) error {
	if !header.Type.Valid() {
		return &FormatError{Type: header.Type, Reason: "unknown message type"}
	}
	if header.DataSize > MaxBodySize {
		return &FormatError{Type: header.Type, Reason: fmt.Sprintf("data size %d exceeds maximum %d", header.DataSize, MaxBodySize)}
	}
	switch header.Type {
	case ProcessAudio:
		if header.DataSize < ProcessAudioPrefixSize {
			return &FormatError{Type: header.Type, Reason: fmt.Sprintf("data size %d is smaller than the %d-byte prefix", header.DataSize, ProcessAudioPrefixSize)}
		}
		if (header.DataSize-ProcessAudioPrefixSize)%SampleSize != 0 {
			return &FormatError{Type: header.Type, Reason: fmt.Sprintf("audio data of %d bytes is not a whole number of samples", header.DataSize-ProcessAudioPrefixSize)}
		}
	case ProcessMidi:
	default:
		expected, _ := ExpectedSize(header.Type)
		if int(header.DataSize) != expected {
			return &FormatError{Type: header.Type, Reason: fmt.Sprintf("data size %d, want %d", header.DataSize, expected)}
		}
	}
	return nil
}

// headerOnly marks a FormatError raised before the type was known.
const headerOnly = MessageType(^uint32(0))

// FormatError reports a header or body that does not match the wire
// format.
type FormatError struct {
	Type   MessageType
	Reason string
}

func (e *FormatError) Error() string {
	if e.Type == headerOnly {
		return "wire: malformed header: " + e.Reason
	}
	return fmt.Sprintf("wire: malformed %s message: %s", e.Type, e.Reason)
}
