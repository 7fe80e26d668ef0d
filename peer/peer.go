// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/netutil"
	"github.com/p2paste/p2paste/transport"
)

// DefaultPollInterval is the receive loop's readiness poll when
// Config.PollInterval is zero.
const DefaultPollInterval = time.Second

// ErrAlreadyConnected is returned by Connect on a peer that is not
// disconnected.
var ErrAlreadyConnected = errors.New("peer already connected")

// State is the connection state of a Peer.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures a Peer.
type Config struct {
	// CACertificate is the PEM trust root for the server certificate.
	CACertificate string

	// ServerName overrides the verified server name.
	ServerName string

	// MinVersion is the minimum TLS version. Zero means TLS 1.2.
	MinVersion uint16

	// Timeout bounds the dial and each frame read or write.
	Timeout time.Duration

	// PollInterval bounds each readiness wait of the receive loop and
	// therefore how long Disconnect may block.
	PollInterval time.Duration

	// Codec serializes envelopes. Nil means JSON.
	Codec codec.Codec

	// Logger receives connection lifecycle messages. If nil, a no-op
	// logger is used.
	Logger *slog.Logger

	// OnData is called on the receive loop goroutine with every
	// envelope read from the server, before validation.
	OnData func(raw envelope.Raw)

	// OnDisconnected is called on the receive loop goroutine when the
	// connection breaks. It is not called after Disconnect.
	OnDisconnected func(err error)
}

// Peer is a client connection to a p2paste server. It is safe for
// concurrent use, except that Disconnect must not be called from OnData
// or OnDisconnected.
type Peer struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	conn   *transport.Conn
	stop   chan struct{}
	done   chan struct{}
	remote net.Addr
}

// New returns a disconnected Peer.
func New(config Config) *Peer {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.OnData == nil {
		config.OnData = func(envelope.Raw) {}
	}
	if config.OnDisconnected == nil {
		config.OnDisconnected = func(error) {}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Peer{config: config, logger: logger}
}

// Connect dials address and starts the receive loop. On failure the
// peer stays disconnected and the error wraps
// transport.ErrConnectionBroken.
func (p *Peer) Connect(ctx context.Context, address string) error {
	p.mu.Lock()
	if p.state != StateDisconnected {
		state := p.state
		p.mu.Unlock()
		return fmt.Errorf("%w (%s)", ErrAlreadyConnected, state)
	}
	p.state = StateConnecting
	p.mu.Unlock()

	conn, err := transport.Dial(ctx, address, transport.ClientOptions{
		CACertificate: p.config.CACertificate,
		ServerName:    p.config.ServerName,
		MinVersion:    p.config.MinVersion,
		Timeout:       p.config.Timeout,
		Codec:         p.config.Codec,
	})
	if err != nil {
		p.mu.Lock()
		p.state = StateDisconnected
		p.mu.Unlock()
		p.logger.Warn("connecting to server failed", "address", address, "error", err)
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	p.mu.Lock()
	p.state = StateConnected
	p.conn = conn
	p.stop = stop
	p.done = done
	p.remote = conn.RemoteAddr()
	p.mu.Unlock()

	p.logger.Info("connected to server", "address", address)
	go p.receiveLoop(conn, stop, done)
	return nil
}

// Disconnect stops the receive loop, waits for it to exit, and closes
// the connection. It returns nil when the peer is not connected.
func (p *Peer) Disconnect() error {
	p.mu.Lock()
	if p.state != StateConnected {
		p.mu.Unlock()
		return nil
	}
	conn, stop, done := p.conn, p.stop, p.done
	p.state = StateDisconnected
	p.conn = nil
	p.stop = nil
	p.done = nil
	p.mu.Unlock()

	close(stop)
	conn.Interrupt()
	<-done

	p.logger.Info("disconnected from server", "address", conn.RemoteAddr())
	return conn.Close()
}

// Send writes payload to the server. It fails with
// transport.ErrConnectionBroken when the peer is not connected or the
// write fails.
func (p *Peer) Send(payload any) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: not connected", transport.ErrConnectionBroken)
	}
	return conn.Send(payload)
}

// Connected reports whether the receive loop is running.
func (p *Peer) Connected() bool {
	return p.State() == StateConnected
}

// State returns the current connection state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RemoteAddr returns the address of the most recent server, or nil
// before the first successful Connect.
func (p *Peer) RemoteAddr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *Peer) receiveLoop(conn *transport.Conn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		ready, err := conn.WaitReadable(p.config.PollInterval)
		if err == nil && !ready {
			continue
		}

		var raw envelope.Raw
		if err == nil {
			err = conn.Receive(&raw)
		}
		if err != nil {
			p.lost(conn, err)
			return
		}

		p.config.OnData(raw)
	}
}

// lost handles a broken connection discovered by the receive loop. A
// connection already taken over by Disconnect is left to it.
func (p *Peer) lost(conn *transport.Conn, err error) {
	p.mu.Lock()
	owned := p.conn == conn
	if owned {
		p.state = StateDisconnected
		p.conn = nil
		p.stop = nil
		p.done = nil
	}
	p.mu.Unlock()
	if !owned {
		return
	}

	if netutil.IsExpectedCloseError(err) {
		p.logger.Info("server closed the connection", "address", conn.RemoteAddr())
	} else {
		p.logger.Error("connection to server broken", "address", conn.RemoteAddr(), "error", err)
	}
	conn.Close()
	p.config.OnDisconnected(err)
}
