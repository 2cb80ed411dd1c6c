// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
)

// oscillator generates a phase-continuous sine across blocks.
type oscillator struct {
	phase     float64
	increment float64
	amplitude float32
}

func newOscillator(frequency, sampleRate float64, amplitude float32) *oscillator {
	return &oscillator{
		increment: 2 * math.Pi * frequency / sampleRate,
		amplitude: amplitude,
	}
}

// fill writes the next sampleCount samples to every channel.
func (o *oscillator) fill(buffers [][]float32, sampleCount int) {
	for i := range sampleCount {
		sample := o.amplitude * float32(math.Sin(o.phase))
		for _, buffer := range buffers {
			buffer[i] = sample
		}
		o.phase += o.increment
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}

// meter accumulates per-channel peak and RMS.
type meter struct {
	peaks   []float64
	squares []float64
	samples int
}

func newMeter(channelCount int) *meter {
	return &meter{
		peaks:   make([]float64, channelCount),
		squares: make([]float64, channelCount),
	}
}

func (m *meter) add(buffers [][]float32, sampleCount int) {
	for ch, buffer := range buffers {
		for _, sample := range buffer[:sampleCount] {
			value := math.Abs(float64(sample))
			m.peaks[ch] = max(m.peaks[ch], value)
			m.squares[ch] += value * value
		}
	}
	m.samples += sampleCount
}

func (m *meter) peak(ch int) float64 {
	return m.peaks[ch]
}

func (m *meter) rms(ch int) float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.squares[ch] / float64(m.samples))
}

// decibels converts a linear level to dBFS, with silence at -inf.
func decibels(level float64) float64 {
	if level <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(level)
}
