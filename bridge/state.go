// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "fmt"

// State is the position of a [Session].
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	PluginLoaded
	Suspended
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case PluginLoaded:
		return "plugin_loaded"
	case Suspended:
		return "suspended"
	case ShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// loaded reports whether a module is loaded in this state.
func (s State) loaded() bool {
	return s == PluginLoaded || s == Suspended
}

// connected reports whether a worker is attached in this state.
func (s State) connected() bool {
	return s == Connected || s.loaded()
}
