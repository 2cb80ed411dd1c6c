// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"testing"
)

func TestOscillatorIsContinuousAcrossBlocks(t *testing.T) {
	t.Parallel()
	whole := newOscillator(440, 48000, 0.5)
	split := newOscillator(440, 48000, 0.5)

	reference := [][]float32{make([]float32, 256)}
	whole.fill(reference, 256)

	first := [][]float32{make([]float32, 100)}
	second := [][]float32{make([]float32, 156)}
	split.fill(first, 100)
	split.fill(second, 156)

	joined := append(append([]float32(nil), first[0]...), second[0]...)
	for i := range joined {
		if math.Abs(float64(joined[i]-reference[0][i])) > 1e-6 {
			t.Fatalf("sample %d: split %v, whole %v", i, joined[i], reference[0][i])
		}
	}
}

func TestOscillatorFillsEveryChannel(t *testing.T) {
	t.Parallel()
	buffers := [][]float32{make([]float32, 16), make([]float32, 16)}
	newOscillator(1000, 8000, 1).fill(buffers, 16)
	for i := range 16 {
		if buffers[0][i] != buffers[1][i] {
			t.Fatalf("channels differ at %d", i)
		}
	}
}

func TestMeter(t *testing.T) {
	t.Parallel()
	m := newMeter(2)
	m.add([][]float32{{0.5, -1, 0.5, -1}, {0, 0, 0, 0}}, 4)

	if m.peak(0) != 1 {
		t.Errorf("peak = %v, want 1", m.peak(0))
	}
	wantRMS := math.Sqrt((0.25 + 1 + 0.25 + 1) / 4)
	if math.Abs(m.rms(0)-wantRMS) > 1e-12 {
		t.Errorf("rms = %v, want %v", m.rms(0), wantRMS)
	}
	if m.peak(1) != 0 || m.rms(1) != 0 {
		t.Errorf("silent channel: peak %v rms %v", m.peak(1), m.rms(1))
	}
	if !math.IsInf(decibels(m.rms(1)), -1) {
		t.Errorf("decibels(0) = %v, want -inf", decibels(m.rms(1)))
	}
	if decibels(1) != 0 {
		t.Errorf("decibels(1) = %v, want 0", decibels(1))
	}
	if newMeter(1).rms(0) != 0 {
		t.Error("empty meter has nonzero rms")
	}
}

func TestParseParameters(t *testing.T) {
	t.Parallel()
	settings, err := parseParameters([]string{"0=0.25", " 3 = 1"})
	if err != nil {
		t.Fatalf("parseParameters: %v", err)
	}
	if len(settings) != 2 || settings[0] != (parameterSetting{0, 0.25}) || settings[1] != (parameterSetting{3, 1}) {
		t.Fatalf("settings = %+v", settings)
	}

	for _, bad := range []string{"0", "x=0.5", "-1=0.5", "0=loud", "0=1.5", "0=-0.1"} {
		if _, err := parseParameters([]string{bad}); err == nil {
			t.Errorf("parseParameters(%q) succeeded", bad)
		}
	}
}
