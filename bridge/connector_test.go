// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/wire"
	"github.com/bureau-foundation/effectbridge/worker"
)

// serveFunc plays the worker's side of one connection.
type serveFunc func(ctx context.Context, duplex *channel.Duplex) error

// pipeConnector connects sessions to an in-process worker over
// net.Pipe. Each Connect uses the next serveFunc; the last one is
// reused.
type pipeConnector struct {
	t      *testing.T
	serves []serveFunc

	mu          sync.Mutex
	connects    int
	teardowns   int
	notified    int
	cancel      context.CancelFunc
	done        chan error
	workerSide  *channel.Duplex
	hostSide    *channel.Duplex
	connectFail error
}

func newPipeConnector(t *testing.T, serves ...serveFunc) *pipeConnector {
	if len(serves) == 0 {
		serves = []serveFunc{serveLoop}
	}
	connector := &pipeConnector{t: t, serves: serves}
	t.Cleanup(func() {
		connector.Teardown(nil)
	})
	return connector
}

// serveLoop runs the real worker loop with the built-in modules.
func serveLoop(ctx context.Context, duplex *channel.Duplex) error {
	return worker.NewLoop(duplex, worker.Options{}).Run(ctx)
}

func (c *pipeConnector) Connect(ctx context.Context) (*channel.Duplex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectFail != nil {
		return nil, c.connectFail
	}
	if c.done != nil {
		return nil, errors.New("pipeConnector: already connected")
	}
	serve := c.serves[min(c.connects, len(c.serves)-1)]
	c.connects++

	hostSend, workerReceive := net.Pipe()
	workerSend, hostReceive := net.Pipe()
	c.hostSide = &channel.Duplex{
		Send:    channel.New("to", hostSend),
		Receive: channel.New("from", hostReceive),
	}
	c.workerSide = &channel.Duplex{
		Send:    channel.New("from", workerSend),
		Receive: channel.New("to", workerReceive),
	}
	serveContext, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan error, 1)
	done := c.done
	workerSide := c.workerSide
	go func() {
		done <- serve(serveContext, workerSide)
	}()
	return c.hostSide, nil
}

func (c *pipeConnector) Teardown(notify func(*channel.Duplex)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return
	}
	c.teardowns++
	if c.aliveLocked() && notify != nil {
		c.notified++
		notify(c.hostSide)
	}
	select {
	case <-c.done:
	case <-time.After(100 * time.Millisecond): //nolint:realclock // grace period for the in-process worker
	}
	c.cancel()
	c.hostSide.Close()
	c.workerSide.Close()
	c.done = nil
}

func (c *pipeConnector) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aliveLocked()
}

func (c *pipeConnector) aliveLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case err := <-c.done:
		// Put it back for Teardown.
		c.done <- err
		return false
	default:
		return true
	}
}

func (c *pipeConnector) stats() (connects, teardowns, notified int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.teardowns, c.notified
}

// scriptedServer answers every request with respond, recording the
// headers it saw. For ProcessAudio it writes a silent output tail after
// a successful response.
type scriptedServer struct {
	mu      sync.Mutex
	headers []wire.Header
	respond func(header wire.Header) (wire.Header, wire.ResponsePayload, bool)
}

func (s *scriptedServer) seen() []wire.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wire.Header(nil), s.headers...)
}

func (s *scriptedServer) serve(ctx context.Context, duplex *channel.Duplex) error {
	stop := context.AfterFunc(ctx, func() { duplex.Close() })
	defer stop()
	headerBuffer := make([]byte, wire.HeaderSize)
	for {
		if _, err := duplex.Receive.Read(headerBuffer, 0); err != nil {
			return nil
		}
		header, err := wire.DecodeHeader(headerBuffer)
		if err != nil {
			return err
		}
		body := make([]byte, header.DataSize)
		if _, err := duplex.Receive.Read(body, time.Second); err != nil {
			return err
		}
		s.mu.Lock()
		s.headers = append(s.headers, header)
		s.mu.Unlock()

		responseHeader := wire.Header{Type: wire.Response, DataSize: wire.ResponseSize, SequenceID: header.SequenceID}
		response := wire.Succeeded()
		send := true
		if s.respond != nil {
			responseHeader, response, send = s.respond(header)
		}
		if !send {
			continue
		}
		message := append(wire.EncodeHeader(responseHeader), wire.EncodePayload(response)...)
		if _, err := duplex.Send.Write(message, time.Second); err != nil {
			return err
		}
		if header.Type == wire.ProcessAudio && response.Success {
			samples, _, outputs, err := wire.DecodeProcessAudioPrefix(body[:wire.ProcessAudioPrefixSize])
			if err != nil {
				return err
			}
			tail := make([]byte, wire.AudioTailSize(int(samples), int(outputs)))
			if _, err := duplex.Send.Write(tail, time.Second); err != nil {
				return err
			}
		}
		if header.Type == wire.Shutdown {
			return nil
		}
	}
}
