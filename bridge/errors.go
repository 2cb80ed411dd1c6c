// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/effectbridge/wire"
)

var (
	// ErrNotConnected is returned by calls that need a worker when the
	// session has none.
	ErrNotConnected = errors.New("bridge: not connected to a worker")

	// ErrNoPlugin is returned by calls that need a loaded module.
	ErrNoPlugin = errors.New("bridge: no effect module loaded")

	// ErrNotActive is returned by ProcessAudio while the module is
	// loaded but suspended.
	ErrNotActive = errors.New("bridge: effect is suspended")

	// ErrDesynchronized is returned by every call after a transport or
	// protocol failure, until Restart.
	ErrDesynchronized = errors.New("bridge: session desynchronized; restart required")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("bridge: session closed")
)

// PluginError is a request the worker answered with success=false.
type PluginError struct {
	Type    wire.MessageType
	Message string
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("bridge: worker rejected %s: %s", e.Type, e.Message)
}

// ProtocolError is a response that violates the wire format: the wrong
// header type, the wrong size, or a body that does not decode.
type ProtocolError struct {
	Request wire.MessageType
	Reason  string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge: bad response to %s: %s: %v", e.Request, e.Reason, e.Err)
	}
	return fmt.Sprintf("bridge: bad response to %s: %s", e.Request, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newPluginError(messageType wire.MessageType, message string) *PluginError {
	if message == "" {
		message = "no reason given"
	}
	return &PluginError{Type: messageType, Message: message}
}
