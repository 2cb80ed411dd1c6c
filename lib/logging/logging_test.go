// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) = nil error, want failure")
	}
}

func TestAutoFormatUsesJSONForNonTerminal(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	logger, err := New(&buffer, "info", "auto")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.With("component", "worker").Info("effect loaded", "plugin_path", "builtin:gain")

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buffer.String())
	}
	if record["msg"] != "effect loaded" {
		t.Errorf("msg = %v, want effect loaded", record["msg"])
	}
	if record["component"] != "worker" {
		t.Errorf("component = %v, want worker", record["component"])
	}
	if record["plugin_path"] != "builtin:gain" {
		t.Errorf("plugin_path = %v, want builtin:gain", record["plugin_path"])
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	logger, err := New(&buffer, "warn", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")

	output := buffer.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("info record written at warn level: %s", output)
	}
	if !strings.Contains(output, "kept") {
		t.Errorf("warn record missing: %s", output)
	}
}

func TestTextFormat(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	logger, err := New(&buffer, "debug", "text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("handshake polling", "attempt", 3)

	output := buffer.String()
	if !strings.Contains(output, "handshake polling") {
		t.Errorf("text output missing message: %q", output)
	}
	if !strings.Contains(output, "attempt=3") {
		t.Errorf("text output missing attribute: %q", output)
	}
	if json.Valid(bytes.TrimSpace(buffer.Bytes())) {
		t.Errorf("text format produced JSON: %q", output)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("New with format xml = nil error, want failure")
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	t.Parallel()

	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(bytes.Buffer) = true, want false")
	}
}
