// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ShapeError reports buffers that do not match the declared counts.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "audio: " + e.Reason
}

func checkCounts(sampleCount, channelCount int) error {
	if sampleCount < 0 || channelCount < 0 {
		return &ShapeError{Reason: fmt.Sprintf("negative count (samples %d, channels %d)", sampleCount, channelCount)}
	}
	return nil
}

func checkChannels(perChannel [][]float32, sampleCount, channelCount int) error {
	if len(perChannel) < channelCount {
		return &ShapeError{Reason: fmt.Sprintf("%d channel buffers, need %d", len(perChannel), channelCount)}
	}
	for ch := range channelCount {
		if len(perChannel[ch]) < sampleCount {
			return &ShapeError{Reason: fmt.Sprintf("channel %d holds %d samples, need %d", ch, len(perChannel[ch]), sampleCount)}
		}
	}
	return nil
}

// Interleave returns a new flat buffer of sampleCount*channelCount
// samples read from the first channelCount buffers of perChannel.
func Interleave(perChannel [][]float32, sampleCount, channelCount int) ([]float32, error) {
	if err := checkCounts(sampleCount, channelCount); err != nil {
		return nil, err
	}
	flat := make([]float32, sampleCount*channelCount)
	if err := InterleaveInto(flat, perChannel, sampleCount, channelCount); err != nil {
		return nil, err
	}
	return flat, nil
}

// InterleaveInto writes the interleaved block into flat, which must hold
// at least sampleCount*channelCount samples.
func InterleaveInto(flat []float32, perChannel [][]float32, sampleCount, channelCount int) error {
	if err := checkCounts(sampleCount, channelCount); err != nil {
		return err
	}
	if err := checkChannels(perChannel, sampleCount, channelCount); err != nil {
		return err
	}
	if len(flat) < sampleCount*channelCount {
		return &ShapeError{Reason: fmt.Sprintf("flat buffer holds %d samples, need %d", len(flat), sampleCount*channelCount)}
	}
	for ch := range channelCount {
		source := perChannel[ch]
		for i := range sampleCount {
			flat[i*channelCount+ch] = source[i]
		}
	}
	return nil
}

// Deinterleave returns channelCount new buffers of sampleCount samples
// each.
func Deinterleave(flat []float32, sampleCount, channelCount int) ([][]float32, error) {
	if err := checkCounts(sampleCount, channelCount); err != nil {
		return nil, err
	}
	perChannel := make([][]float32, channelCount)
	for ch := range perChannel {
		perChannel[ch] = make([]float32, sampleCount)
	}
	if err := DeinterleaveInto(perChannel, flat, sampleCount, channelCount); err != nil {
		return nil, err
	}
	return perChannel, nil
}

// DeinterleaveInto writes flat into the first channelCount buffers of
// perChannel. Samples past sampleCount in each buffer are left alone.
func DeinterleaveInto(perChannel [][]float32, flat []float32, sampleCount, channelCount int) error {
	if err := checkCounts(sampleCount, channelCount); err != nil {
		return err
	}
	if len(flat) < sampleCount*channelCount {
		return &ShapeError{Reason: fmt.Sprintf("flat buffer holds %d samples, need %d", len(flat), sampleCount*channelCount)}
	}
	if err := checkChannels(perChannel, sampleCount, channelCount); err != nil {
		return err
	}
	for ch := range channelCount {
		destination := perChannel[ch]
		for i := range sampleCount {
			destination[i] = flat[i*channelCount+ch]
		}
	}
	return nil
}

// EncodeFloats appends the little-endian encoding of samples to buffer.
func EncodeFloats(buffer []byte, samples []float32) []byte {
	for _, sample := range samples {
		buffer = binary.LittleEndian.AppendUint32(buffer, math.Float32bits(sample))
	}
	return buffer
}

// DecodeFloats decodes data into samples. len(data) must be exactly
// 4*len(samples).
func DecodeFloats(samples []float32, data []byte) error {
	if len(data) != len(samples)*4 {
		return &ShapeError{Reason: fmt.Sprintf("%d bytes cannot fill %d samples", len(data), len(samples))}
	}
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

// Clear zeroes every buffer.
func Clear(buffers [][]float32) {
	for _, buffer := range buffers {
		clear(buffer)
	}
}
