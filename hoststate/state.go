// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hoststate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/effectbridge/lib/codec"
)

// CurrentVersion is the format version written by Encode.
const CurrentVersion = 1

// ErrUnsupportedVersion is returned when decoding a blob written by a
// newer format version, or one with no version at all.
var ErrUnsupportedVersion = errors.New("hoststate: unsupported state version")

// State is the persisted host state.
type State struct {
	Version uint `cbor:"version"`

	// PluginPath is the module the session had loaded, or empty when
	// none was.
	PluginPath string `cbor:"plugin_path,omitempty"`
}

// Encode returns the CBOR encoding of state. A zero Version is written
// as CurrentVersion.
func Encode(state State) ([]byte, error) {
	if state.Version == 0 {
		state.Version = CurrentVersion
	}
	data, err := codec.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding host state: %w", err)
	}
	return data, nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (State, error) {
	if len(data) == 0 {
		return State{}, errors.New("hoststate: empty state blob")
	}
	if err := codec.Wellformed(data); err != nil {
		return State{}, fmt.Errorf("malformed host state: %w", err)
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decoding host state: %w", err)
	}
	if state.Version == 0 || state.Version > CurrentVersion {
		return State{}, fmt.Errorf("%w: %d (this build reads up to %d)", ErrUnsupportedVersion, state.Version, CurrentVersion)
	}
	return state, nil
}

// WriteFile atomically replaces the file at path with data. The file is
// created with mode 0600; the parent directory must exist.
func WriteFile(path string, data []byte) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary state file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming state file into place: %w", err)
	}

	// Make the rename itself durable.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// ReadFile returns the contents of a state file. A missing file yields
// an error wrapping os.ErrNotExist.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save encodes state and writes it to path.
func Save(path string, state State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// Load reads and decodes the state file at path. The second result is
// false, with a nil error, when the file does not exist.
func Load(path string) (State, bool, error) {
	data, err := ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	state, err := Decode(data)
	if err != nil {
		return State{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return state, true, nil
}

// Clear removes a state file. It returns nil when the file does not
// exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
