// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/effectbridge/audio"
	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/effect"
	"github.com/bureau-foundation/effectbridge/lib/binhash"
	"github.com/bureau-foundation/effectbridge/lib/config"
	"github.com/bureau-foundation/effectbridge/wire"
)

// maxChannels bounds the channel counts a ProcessAudio request may ask
// for, which in turn bounds the output buffers the worker allocates.
const maxChannels = 64

// drainChunk is the buffer size used to discard malformed bodies.
const drainChunk = 64 << 10

// Options configures a Loop.
type Options struct {
	// Loader resolves LoadPlugin paths. Default: effect.DefaultLoader().
	Loader effect.Loader

	// ControlTimeout bounds control payload reads and every response
	// write. Default: 1s.
	ControlTimeout time.Duration

	// AudioTimeout bounds ProcessAudio payload reads and the output
	// tail write. Default: 2s.
	AudioTimeout time.Duration

	Logger *slog.Logger
}

// Loop serves one host connection.
type Loop struct {
	receive *channel.Channel
	send    *channel.Channel
	options Options
	logger  *slog.Logger

	registry *effect.Registry
	context  *effect.HostContext
	instance *effect.Instance

	headerBuffer []byte
	inputs       [][]float32
	outputs      [][]float32
	flat         []float32
	tail         []byte
}

// NewLoop returns a loop reading requests from duplex.Receive and
// writing responses to duplex.Send.
func NewLoop(duplex *channel.Duplex, options Options) *Loop {
	defaults := config.Default().Timeouts
	if options.Loader == nil {
		options.Loader = effect.DefaultLoader()
	}
	if options.ControlTimeout <= 0 {
		options.ControlTimeout = defaults.Send
	}
	if options.AudioTimeout <= 0 {
		options.AudioTimeout = defaults.Receive
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Loop{
		receive:      duplex.Receive,
		send:         duplex.Send,
		options:      options,
		logger:       options.Logger.With("component", "worker"),
		registry:     effect.NewRegistry(),
		context:      effect.NewHostContext(),
		headerBuffer: make([]byte, wire.HeaderSize),
	}
}

// Loaded reports whether an effect is loaded.
func (l *Loop) Loaded() bool {
	return l.instance != nil
}

// Run serves requests until Shutdown (returns nil), until the host
// closes the inbound channel (returns nil), until ctx is cancelled
// (returns ctx.Err()), or until a channel failure (returns it). The
// loaded effect is unloaded before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.unload()

	// Header reads have no deadline; closing the inbound channel is the
	// only way to interrupt one.
	stop := context.AfterFunc(ctx, func() {
		l.receive.Close()
	})
	defer stop()

	for {
		if _, err := l.receive.Read(l.headerBuffer, 0); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if kind, _ := channel.KindOf(err); kind == channel.Closed {
				l.logger.Info("host closed the channel")
				return nil
			}
			return fmt.Errorf("reading header: %w", err)
		}
		header, err := wire.DecodeHeader(l.headerBuffer)
		if err != nil {
			return err
		}

		done, err := l.handle(header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if done {
			l.logger.Info("shutdown requested")
			return nil
		}
	}
}

// handle serves one request. It returns done=true after Shutdown and an
// error only when the channel pair is no longer usable.
func (l *Loop) handle(header wire.Header) (done bool, err error) {
	logger := l.logger.With("type", header.Type.String(), "sequence_id", header.SequenceID)

	if err := wire.ValidateHeader(header); err != nil {
		logger.Warn("rejecting malformed header", "data_size", header.DataSize, "error", err)
		if err := l.drain(header.DataSize); err != nil {
			return false, err
		}
		return false, l.respond(header, wire.Failed(err.Error()))
	}

	timeout := l.options.ControlTimeout
	if header.Type == wire.ProcessAudio {
		timeout = l.options.AudioTimeout
	}
	body := make([]byte, header.DataSize)
	if _, err := l.receive.Read(body, timeout); err != nil {
		return false, fmt.Errorf("reading %s payload: %w", header.Type, err)
	}

	payload, err := wire.DecodePayload(header.Type, body)
	if err != nil {
		logger.Warn("rejecting undecodable payload", "error", err)
		return false, l.respond(header, wire.Failed(err.Error()))
	}

	switch payload := payload.(type) {
	case wire.LoadPluginPayload:
		return false, l.respond(header, l.load(payload.Path, logger))

	case wire.UnloadPluginPayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.unload()
		return false, l.respond(header, wire.Succeeded())

	case wire.SetSampleRatePayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.instance.SetSampleRate(payload.SampleRate)
		return false, l.respond(header, wire.Succeeded())

	case wire.SetBlockSizePayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.instance.SetBlockSize(payload.BlockSize)
		return false, l.respond(header, wire.Succeeded())

	case wire.ResumePayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.instance.SetActive(true)
		return false, l.respond(header, wire.Succeeded())

	case wire.SuspendPayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.instance.SetActive(false)
		return false, l.respond(header, wire.Succeeded())

	case wire.SetParameterPayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		l.instance.SetParameter(payload.Index, payload.Value)
		return false, l.respond(header, wire.Succeeded())

	case wire.GetParameterPayload:
		if l.instance == nil {
			return false, l.respond(header, wire.Failed("no effect loaded"))
		}
		value := l.instance.GetParameter(payload.Index)
		return false, l.respond(header, wire.SucceededWith(wire.FloatValue(value)))

	case wire.ProcessAudioPayload:
		return false, l.process(header, payload)

	case wire.ProcessMidiPayload:
		return false, l.respond(header, wire.Failed("MIDI events are not supported"))

	case wire.ShutdownPayload:
		return true, l.respond(header, wire.Succeeded())

	default:
		return false, l.respond(header, wire.Failedf("unexpected %s message", header.Type))
	}
}

func (l *Loop) load(path string, logger *slog.Logger) wire.ResponsePayload {
	l.unload()

	if fingerprint, err := binhash.Fingerprint(path); err != nil {
		logger.Warn("fingerprinting effect module", "plugin_path", path, "error", err)
	} else if fingerprint != "" {
		logger = logger.With("digest", fingerprint)
	}

	instance, err := effect.Open(l.options.Loader, l.registry, l.context, path)
	if err != nil {
		logger.Warn("effect load failed", "plugin_path", path, "error", err)
		return wire.Failed(err.Error())
	}
	l.instance = instance
	logger.Info("effect loaded",
		"plugin_path", path,
		"unique_id", instance.Effect().UniqueID(),
		"flags", uint32(instance.Effect().Flags()),
	)
	return wire.Succeeded()
}

func (l *Loop) unload() {
	if l.instance == nil {
		return
	}
	path := l.instance.Path()
	l.instance.Close()
	l.instance = nil
	l.logger.Info("effect unloaded", "plugin_path", path)
}

func (l *Loop) process(header wire.Header, payload wire.ProcessAudioPayload) error {
	if l.instance == nil {
		return l.respond(header, wire.Failed("no effect loaded"))
	}
	sampleCount := int(payload.SampleCount)
	inputCount := int(payload.InputChannelCount)
	outputCount := int(payload.OutputChannelCount)
	if inputCount > maxChannels || outputCount > maxChannels {
		return l.respond(header, wire.Failedf("channel count exceeds %d (inputs %d, outputs %d)", maxChannels, inputCount, outputCount))
	}
	if wire.AudioTailSize(sampleCount, outputCount) > wire.MaxBodySize {
		return l.respond(header, wire.Failedf("output block of %d samples on %d channels is too large", sampleCount, outputCount))
	}

	l.inputs = resize(l.inputs, inputCount, sampleCount)
	l.outputs = resize(l.outputs, outputCount, sampleCount)
	if err := audio.DeinterleaveInto(l.inputs, payload.Input, sampleCount, inputCount); err != nil {
		return l.respond(header, wire.Failed(err.Error()))
	}

	l.instance.Process(l.inputs, l.outputs, sampleCount)

	if err := l.respond(header, wire.Succeeded()); err != nil {
		return err
	}

	if cap(l.flat) < sampleCount*outputCount {
		l.flat = make([]float32, sampleCount*outputCount)
	}
	l.flat = l.flat[:sampleCount*outputCount]
	if err := audio.InterleaveInto(l.flat, l.outputs, sampleCount, outputCount); err != nil {
		// Shapes were sized above; this cannot fail.
		return err
	}
	l.tail = audio.EncodeFloats(l.tail[:0], l.flat)
	if _, err := l.send.Write(l.tail, l.options.AudioTimeout); err != nil {
		return fmt.Errorf("writing audio output: %w", err)
	}
	return nil
}

// resize returns channelCount buffers of sampleCount samples, reusing
// buffers' storage where it is large enough.
func resize(buffers [][]float32, channelCount, sampleCount int) [][]float32 {
	if cap(buffers) < channelCount {
		grown := make([][]float32, channelCount)
		copy(grown, buffers)
		buffers = grown
	}
	buffers = buffers[:channelCount]
	for ch := range buffers {
		if cap(buffers[ch]) < sampleCount {
			buffers[ch] = make([]float32, sampleCount)
		}
		buffers[ch] = buffers[ch][:sampleCount]
	}
	return buffers
}

// respond writes the Response to request, echoing its sequence id.
func (l *Loop) respond(request wire.Header, response wire.ResponsePayload) error {
	if _, err := l.send.Write(wire.Encode(request.SequenceID, response), l.options.ControlTimeout); err != nil {
		return fmt.Errorf("writing %s response: %w", request.Type, err)
	}
	if !response.Success {
		l.logger.Debug("request failed",
			"type", request.Type.String(),
			"sequence_id", request.SequenceID,
			"error_message", response.ErrorMessage,
		)
	}
	return nil
}

// drain discards size bytes of a rejected body.
func (l *Loop) drain(size uint32) error {
	remaining := int64(size)
	buffer := make([]byte, min(remaining, drainChunk))
	for remaining > 0 {
		chunk := buffer[:min(remaining, int64(len(buffer)))]
		if _, err := l.receive.Read(chunk, l.options.ControlTimeout); err != nil {
			return fmt.Errorf("draining rejected payload: %w", err)
		}
		remaining -= int64(len(chunk))
	}
	return nil
}

// ErrUsage is returned by Serve for missing channel paths.
var ErrUsage = errors.New("worker: both channel paths are required")

// Serve opens the worker's channel ends and runs a Loop. The
// worker-to-host pipe is opened for writing first, then the
// host-to-worker pipe for reading; both opens block until the host has
// its ends open.
func Serve(ctx context.Context, toPath, fromPath string, options Options) error {
	if toPath == "" || fromPath == "" {
		return ErrUsage
	}
	writer, err := channel.OpenWriter(fromPath)
	if err != nil {
		return err
	}
	reader, err := channel.OpenReader(toPath)
	if err != nil {
		writer.Close()
		return err
	}
	duplex := &channel.Duplex{
		Send:    channel.New("from", writer),
		Receive: channel.New("to", reader),
	}
	defer duplex.Close()

	if options.Logger != nil {
		options.Logger.Info("connected to host", "to_path", toPath, "from_path", fromPath)
	}
	return NewLoop(duplex, options).Run(ctx)
}
