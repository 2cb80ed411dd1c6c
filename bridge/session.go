// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/effectbridge/audio"
	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/hoststate"
	"github.com/bureau-foundation/effectbridge/lib/clock"
	"github.com/bureau-foundation/effectbridge/lib/codec"
	"github.com/bureau-foundation/effectbridge/lib/config"
	"github.com/bureau-foundation/effectbridge/wire"
)

// Connector starts and stops workers. supervisor.Supervisor implements
// it.
type Connector interface {
	// Connect starts a worker and returns its connected channels.
	Connect(ctx context.Context) (*channel.Duplex, error)

	// Teardown stops the worker. When it is alive, notify is called
	// first with the channels so the session can ask for a clean exit.
	Teardown(notify func(*channel.Duplex))

	// Alive reports whether the worker process is running.
	Alive() bool
}

// Options configures a Session.
type Options struct {
	Connector Connector

	// SendTimeout bounds every request write. Default: 1s.
	SendTimeout time.Duration

	// ReceiveTimeout bounds every response and audio read. Default: 2s.
	ReceiveTimeout time.Duration

	// Metrics may be nil.
	Metrics *Metrics

	Clock  clock.Clock
	Logger *slog.Logger
}

// Session is the host's connection to one worker at a time.
type Session struct {
	connector Connector
	options   Options
	logger    *slog.Logger

	mu             sync.Mutex
	state          State
	duplex         *channel.Duplex
	sequenceID     uint32
	desynchronized bool
	closed         bool

	pluginPath string
	sampleRate float64
	blockSize  int32

	responseBuffer []byte
	interleaved    []float32
	outputBuffer   []byte
	outputSamples  []float32
}

// NewSession returns a disconnected session.
func NewSession(options Options) (*Session, error) {
	if options.Connector == nil {
		return nil, errors.New("bridge: Connector is required")
	}
	defaults := config.Default().Timeouts
	if options.SendTimeout <= 0 {
		options.SendTimeout = defaults.Send
	}
	if options.ReceiveTimeout <= 0 {
		options.ReceiveTimeout = defaults.Receive
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Session{
		connector:      options.Connector,
		options:        options,
		logger:         options.Logger.With("component", "bridge"),
		responseBuffer: make([]byte, wire.HeaderSize+wire.ResponseSize),
	}, nil
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PluginPath returns the path of the loaded module, or "" when none is.
func (s *Session) PluginPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pluginPath
}

// SequenceID returns the id of the most recent request.
func (s *Session) SequenceID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequenceID
}

// Desynchronized reports whether the session needs a Restart.
func (s *Session) Desynchronized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desynchronized
}

// Connect starts a worker. The session must be disconnected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.state != Disconnected {
		return fmt.Errorf("bridge: cannot connect while %s", s.state)
	}
	s.state = Connecting
	duplex, err := s.connector.Connect(ctx)
	if err != nil {
		s.state = Disconnected
		return fmt.Errorf("connecting to worker: %w", err)
	}
	s.duplex = duplex
	s.desynchronized = false
	s.state = Connected
	s.logger.Info("session connected")
	return nil
}

// LoadPlugin loads the module at path, unloading any current one first.
// When a sample rate is already known it is sent right after the load;
// its result does not affect the outcome. A rejected load returns a
// *PluginError and leaves the session Connected.
func (s *Session) LoadPlugin(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(path)
}

func (s *Session) loadLocked(path string) error {
	if err := s.usableLocked(); err != nil {
		return err
	}
	if s.state.loaded() {
		if err := s.unloadLocked(); err != nil {
			var pluginError *PluginError
			if !errors.As(err, &pluginError) {
				return err
			}
		}
	}

	if _, err := s.requestLocked(wire.LoadPluginPayload{Path: path}); err != nil {
		return err
	}
	s.state = PluginLoaded
	s.pluginPath = path
	s.logger.Info("effect loaded", "plugin_path", path)

	if s.sampleRate > 0 {
		_, err := s.requestLocked(wire.SetSampleRatePayload{SampleRate: s.sampleRate})
		var pluginError *PluginError
		if errors.As(err, &pluginError) {
			s.logger.Warn("worker rejected sample rate after load", "sample_rate", s.sampleRate, "error", err)
		} else if err != nil {
			return err
		}
	}
	return nil
}

// UnloadPlugin unloads the current module. With nothing loaded it does
// nothing and sends nothing. Otherwise the session returns to Connected
// whether or not the worker accepted the request.
func (s *Session) UnloadPlugin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.state.loaded() {
		return nil
	}
	if s.desynchronized {
		return ErrDesynchronized
	}
	return s.unloadLocked()
}

func (s *Session) unloadLocked() error {
	_, err := s.requestLocked(wire.UnloadPluginPayload{})
	s.state = Connected
	s.logger.Info("effect unloaded", "plugin_path", s.pluginPath)
	s.pluginPath = ""
	return err
}

// PrepareToPlay records the sample rate and block size. When a module is
// loaded it sends SetSampleRate, SetBlockSize, and Resume in that order
// and leaves the session in PluginLoaded.
func (s *Session) PrepareToPlay(sampleRate float64, blockSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if sampleRate <= 0 || blockSize <= 0 {
		return fmt.Errorf("bridge: invalid sample rate %v or block size %d", sampleRate, blockSize)
	}
	s.sampleRate = sampleRate
	s.blockSize = int32(blockSize)
	if !s.state.loaded() {
		return nil
	}
	return s.prepareLocked()
}

func (s *Session) prepareLocked() error {
	if err := s.usableLocked(); err != nil {
		return err
	}
	payloads := []wire.Payload{
		wire.SetSampleRatePayload{SampleRate: s.sampleRate},
		wire.SetBlockSizePayload{BlockSize: s.blockSize},
		wire.ResumePayload{},
	}
	for _, payload := range payloads {
		if _, err := s.requestLocked(payload); err != nil {
			return err
		}
	}
	s.state = PluginLoaded
	s.logger.Debug("effect prepared", "sample_rate", s.sampleRate, "block_size", s.blockSize)
	return nil
}

// ReleaseResources suspends the module. It does nothing unless the
// session is in PluginLoaded.
func (s *Session) ReleaseResources() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != PluginLoaded {
		return nil
	}
	return s.releaseLocked()
}

func (s *Session) releaseLocked() error {
	if err := s.usableLocked(); err != nil {
		return err
	}
	if _, err := s.requestLocked(wire.SuspendPayload{}); err != nil {
		return err
	}
	s.state = Suspended
	return nil
}

// ProcessAudio runs one block through the module. inputs and outputs are
// per-channel buffers of at least sampleCount samples. outputs is
// written only when the whole exchange succeeds.
func (s *Session) ProcessAudio(inputs, outputs [][]float32, sampleCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return ErrClosed
	case s.desynchronized:
		return ErrDesynchronized
	case !s.state.connected():
		return ErrNotConnected
	case s.state == Suspended:
		return ErrNotActive
	case s.state != PluginLoaded:
		return ErrNoPlugin
	}

	inputCount, outputCount := len(inputs), len(outputs)
	if sampleCount < 0 {
		return &audio.ShapeError{Reason: fmt.Sprintf("negative sample count %d", sampleCount)}
	}
	for ch, output := range outputs {
		if len(output) < sampleCount {
			return &audio.ShapeError{Reason: fmt.Sprintf("output channel %d has %d samples, need %d", ch, len(output), sampleCount)}
		}
	}
	if wire.ProcessAudioSize(sampleCount, inputCount) > wire.MaxBodySize ||
		wire.AudioTailSize(sampleCount, outputCount) > wire.MaxBodySize {
		return &audio.ShapeError{Reason: fmt.Sprintf("block of %d samples is too large for the channel", sampleCount)}
	}

	total := sampleCount * inputCount
	if cap(s.interleaved) < total {
		s.interleaved = make([]float32, total)
	}
	s.interleaved = s.interleaved[:total]
	if err := audio.InterleaveInto(s.interleaved, inputs, sampleCount, inputCount); err != nil {
		return err
	}

	payload := wire.ProcessAudioPayload{
		SampleCount:        int32(sampleCount),
		InputChannelCount:  int32(inputCount),
		OutputChannelCount: int32(outputCount),
		Input:              s.interleaved,
	}
	start := s.options.Clock.Now()
	s.sequenceID++
	sequenceID := s.sequenceID
	messageType := wire.ProcessAudio.String()

	// Header and fixed prefix in one write, the audio tail in a second.
	request := wire.Encode(sequenceID, payload)
	prefixEnd := wire.HeaderSize + wire.ProcessAudioPrefixSize
	if _, err := s.duplex.Send.Write(request[:prefixEnd], s.options.SendTimeout); err != nil {
		return s.failLocked(wire.ProcessAudio, start, err)
	}
	if _, err := s.duplex.Send.Write(request[prefixEnd:], s.options.SendTimeout); err != nil {
		return s.failLocked(wire.ProcessAudio, start, err)
	}

	response, err := s.readResponseLocked(wire.ProcessAudio, sequenceID)
	if err != nil {
		return s.failLocked(wire.ProcessAudio, start, err)
	}
	if !response.Success {
		s.options.Metrics.observeCall(messageType, resultRejected, s.options.Clock.Now().Sub(start))
		return newPluginError(wire.ProcessAudio, response.ErrorMessage)
	}

	tailSize := wire.AudioTailSize(sampleCount, outputCount)
	if cap(s.outputBuffer) < tailSize {
		s.outputBuffer = make([]byte, tailSize)
	}
	s.outputBuffer = s.outputBuffer[:tailSize]
	if _, err := s.duplex.Receive.Read(s.outputBuffer, s.options.ReceiveTimeout); err != nil {
		return s.failLocked(wire.ProcessAudio, start, fmt.Errorf("reading audio output: %w", err))
	}

	outputTotal := sampleCount * outputCount
	if cap(s.outputSamples) < outputTotal {
		s.outputSamples = make([]float32, outputTotal)
	}
	s.outputSamples = s.outputSamples[:outputTotal]
	if err := audio.DecodeFloats(s.outputSamples, s.outputBuffer); err != nil {
		return s.failLocked(wire.ProcessAudio, start, err)
	}
	if err := audio.DeinterleaveInto(outputs, s.outputSamples, sampleCount, outputCount); err != nil {
		return err
	}
	s.options.Metrics.observeCall(messageType, resultOK, s.options.Clock.Now().Sub(start))
	return nil
}

// SetParameter sets parameter index of the loaded module.
func (s *Session) SetParameter(index int, value float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoadedLocked(); err != nil {
		return err
	}
	_, err := s.requestLocked(wire.SetParameterPayload{Index: int32(index), Value: value})
	return err
}

// GetParameter returns parameter index of the loaded module.
func (s *Session) GetParameter(index int) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLoadedLocked(); err != nil {
		return 0, err
	}
	response, err := s.requestLocked(wire.GetParameterPayload{Index: int32(index)})
	if err != nil {
		return 0, err
	}
	value, ok := response.Value.Float()
	if !ok {
		err := &ProtocolError{
			Request: wire.GetParameter,
			Reason:  fmt.Sprintf("value kind %s, want float", response.Value.Kind()),
		}
		s.markDesynchronizedLocked(wire.GetParameter, err)
		return 0, err
	}
	return value, nil
}

// Shutdown asks the worker to exit, stops it, and leaves the session
// Disconnected. The worker's answer is optional. The plugin path and
// sample rate are kept for a later Restart.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownLocked()
	return nil
}

func (s *Session) shutdownLocked() {
	if s.state == Disconnected {
		return
	}
	s.state = ShuttingDown
	desynchronized := s.desynchronized
	s.connector.Teardown(func(duplex *channel.Duplex) {
		if desynchronized {
			return
		}
		s.sequenceID++
		request := wire.Encode(s.sequenceID, wire.ShutdownPayload{})
		if _, err := duplex.Send.Write(request, s.options.SendTimeout); err != nil {
			s.logger.Debug("sending shutdown", "error", err)
			return
		}
		if _, err := duplex.Receive.Read(s.responseBuffer, s.options.ReceiveTimeout); err != nil {
			s.logger.Debug("awaiting shutdown response", "error", err)
		}
	})
	s.duplex = nil
	s.desynchronized = false
	s.state = Disconnected
	s.logger.Info("session shut down")
}

// Close shuts the session down for good. Later calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.shutdownLocked()
	s.closed = true
	return nil
}

// Restart replaces the worker: it tears down the current one, connects a
// new one, reloads the last module, and re-applies the last sample rate
// and block size. A suspended session comes back suspended.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	wasSuspended := s.state == Suspended
	pluginPath := s.pluginPath
	s.logger.Info("restarting worker", "plugin_path", pluginPath, "desynchronized", s.desynchronized)
	s.shutdownLocked()
	s.options.Metrics.restarted()

	if err := s.connectLocked(ctx); err != nil {
		return err
	}
	if pluginPath == "" {
		return nil
	}
	if err := s.loadLocked(pluginPath); err != nil {
		return fmt.Errorf("reloading %s: %w", pluginPath, err)
	}
	if s.sampleRate > 0 && s.blockSize > 0 {
		if err := s.prepareLocked(); err != nil {
			return err
		}
	}
	if wasSuspended {
		return s.releaseLocked()
	}
	return nil
}

// SaveState returns the persisted form of the session: the loaded
// module's path.
func (s *Session) SaveState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hoststate.Encode(hoststate.State{PluginPath: s.pluginPath})
}

// RestoreState loads the module named in a blob from SaveState. A blob
// that does not decode is an error; a module that fails to load is
// logged and otherwise ignored.
func (s *Session) RestoreState(blob []byte) error {
	state, err := hoststate.Decode(blob)
	if err != nil {
		if notation, diagnoseErr := codec.Diagnose(blob); diagnoseErr == nil {
			s.logger.Debug("undecodable state blob", "cbor", notation)
		}
		return err
	}
	if state.PluginPath == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.loadLocked(state.PluginPath); err != nil {
		s.logger.Warn("restoring saved effect failed", "plugin_path", state.PluginPath, "error", err)
	}
	return nil
}

// usableLocked reports why no request can be sent right now.
func (s *Session) usableLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.desynchronized:
		return ErrDesynchronized
	case !s.state.connected():
		return ErrNotConnected
	}
	return nil
}

func (s *Session) requireLoadedLocked() error {
	if err := s.usableLocked(); err != nil {
		return err
	}
	if !s.state.loaded() {
		return ErrNoPlugin
	}
	return nil
}

// requestLocked sends one request and returns its response. A rejected
// request returns the response and a *PluginError.
func (s *Session) requestLocked(payload wire.Payload) (wire.ResponsePayload, error) {
	if err := s.usableLocked(); err != nil {
		return wire.ResponsePayload{}, err
	}
	messageType := payload.Type()
	start := s.options.Clock.Now()
	s.sequenceID++
	sequenceID := s.sequenceID

	if _, err := s.duplex.Send.Write(wire.Encode(sequenceID, payload), s.options.SendTimeout); err != nil {
		return wire.ResponsePayload{}, s.failLocked(messageType, start, err)
	}
	response, err := s.readResponseLocked(messageType, sequenceID)
	if err != nil {
		return wire.ResponsePayload{}, s.failLocked(messageType, start, err)
	}

	duration := s.options.Clock.Now().Sub(start)
	if !response.Success {
		s.options.Metrics.observeCall(messageType.String(), resultRejected, duration)
		s.logger.Debug("request rejected", "type", messageType.String(), "sequence_id", sequenceID, "error_message", response.ErrorMessage)
		return response, newPluginError(messageType, response.ErrorMessage)
	}
	s.options.Metrics.observeCall(messageType.String(), resultOK, duration)
	s.logger.Debug("request completed", "type", messageType.String(), "sequence_id", sequenceID, "duration", duration)
	return response, nil
}

func (s *Session) readResponseLocked(request wire.MessageType, sequenceID uint32) (wire.ResponsePayload, error) {
	if _, err := s.duplex.Receive.Read(s.responseBuffer, s.options.ReceiveTimeout); err != nil {
		return wire.ResponsePayload{}, err
	}
	header, err := wire.DecodeHeader(s.responseBuffer[:wire.HeaderSize])
	if err != nil {
		return wire.ResponsePayload{}, &ProtocolError{Request: request, Reason: "header", Err: err}
	}
	if header.Type != wire.Response {
		return wire.ResponsePayload{}, &ProtocolError{Request: request, Reason: fmt.Sprintf("header type %s, want response", header.Type)}
	}
	if header.DataSize != wire.ResponseSize {
		return wire.ResponsePayload{}, &ProtocolError{Request: request, Reason: fmt.Sprintf("data size %d, want %d", header.DataSize, wire.ResponseSize)}
	}
	if header.SequenceID != sequenceID {
		s.logger.Warn("response sequence id differs from request",
			"type", request.String(),
			"sequence_id", sequenceID,
			"response_sequence_id", header.SequenceID,
		)
	}
	response, err := wire.DecodeResponse(s.responseBuffer[wire.HeaderSize:])
	if err != nil {
		return wire.ResponsePayload{}, &ProtocolError{Request: request, Reason: "body", Err: err}
	}
	return response, nil
}

// failLocked records a transport or protocol failure and marks the
// session desynchronized.
func (s *Session) failLocked(messageType wire.MessageType, start time.Time, err error) error {
	s.options.Metrics.observeCall(messageType.String(), resultError, s.options.Clock.Now().Sub(start))
	s.markDesynchronizedLocked(messageType, err)
	return fmt.Errorf("%s: %w", messageType, err)
}

func (s *Session) markDesynchronizedLocked(messageType wire.MessageType, err error) {
	if !s.desynchronized {
		s.options.Metrics.desynchronized()
	}
	s.desynchronized = true
	s.logger.Error("session desynchronized",
		"type", messageType.String(),
		"sequence_id", s.sequenceID,
		"worker_alive", s.connector.Alive(),
		"error", err,
	)
}
