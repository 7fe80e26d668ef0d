// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/netutil"
	"github.com/p2paste/p2paste/transport"
)

// ErrNotRunning is returned by operations that need a hosting
// multiplexer.
var ErrNotRunning = errors.New("multiplexer not running")

// DefaultPollInterval is the readers' readiness poll when
// Config.PollInterval is zero.
const DefaultPollInterval = time.Second

// acceptBackoff is the pause after a failed Accept that was not caused
// by closing the listener, such as running out of file descriptors.
const acceptBackoff = 50 * time.Millisecond

// eventQueue is the capacity of the channel feeding the dispatch loop.
const eventQueue = 64

// Config configures a Multiplexer.
type Config struct {
	// BindHost is the local address to listen on. Empty means all
	// interfaces.
	BindHost string

	// Certificate and Key are the server's PEM files.
	Certificate string
	Key         string

	// MinVersion is the minimum TLS version. Zero means TLS 1.2.
	MinVersion uint16

	// Timeout bounds the TLS handshake, Config.Handshake, and each
	// frame read or write.
	Timeout time.Duration

	// PollInterval bounds each readiness wait of the readers.
	PollInterval time.Duration

	// Codec serializes envelopes. Nil means JSON.
	Codec codec.Codec

	// Logger receives connection lifecycle messages. If nil, a no-op
	// logger is used.
	Logger *slog.Logger

	// Handshake runs on the new connection's own goroutine once TLS is
	// established. It returns the connection's name, or an error to
	// reject the connection, which is then closed without ever
	// entering the open set. A nil Handshake admits every connection
	// with an empty name.
	Handshake func(ctx context.Context, conn *Connection) (string, error)

	// Connect runs on the dispatch loop when a connection is admitted.
	Connect func(conn *Connection)

	// Data runs on the dispatch loop for every envelope read from an
	// open connection.
	Data func(conn *Connection, raw envelope.Raw)

	// Disconnect runs on the dispatch loop when an open connection
	// breaks. The connection is removed from the open set afterwards
	// if the callback did not already do so.
	Disconnect func(conn *Connection, err error)
}

type eventKind int

const (
	eventAccepted eventKind = iota
	eventAdmitted
	eventRejected
	eventReceived
	eventBroken
)

type event struct {
	kind eventKind
	conn *Connection
	raw  envelope.Raw
	err  error
}

// Multiplexer hosts a TLS listener and dispatches connection events.
// A Multiplexer hosts at most once; create a new one to host again.
type Multiplexer struct {
	config Config
	logger *slog.Logger

	listener *transport.Listener

	events chan event
	tasks  chan func()
	stop   chan struct{}
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	hosted    atomic.Bool
	running   atomic.Bool
	closeOnce sync.Once
	closeErr  error

	// goroutines counts accept, handshake, and reader goroutines.
	goroutines sync.WaitGroup

	// Owned by the dispatch loop.
	pending map[*Connection]struct{}
	open    []*Connection
}

// New returns a stopped Multiplexer.
func New(config Config) *Multiplexer {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Handshake == nil {
		config.Handshake = func(context.Context, *Connection) (string, error) { return "", nil }
	}
	if config.Connect == nil {
		config.Connect = func(*Connection) {}
	}
	if config.Data == nil {
		config.Data = func(*Connection, envelope.Raw) {}
	}
	if config.Disconnect == nil {
		config.Disconnect = func(*Connection, error) {}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Multiplexer{
		config:  config,
		logger:  logger,
		events:  make(chan event, eventQueue),
		tasks:   make(chan func()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[*Connection]struct{}),
	}
}

// Host binds BindHost:port, starts accepting connections, and returns
// the bound host and port. Port 0 binds a random available port.
// Listen failures wrap transport.ErrConnectionBroken.
func (m *Multiplexer) Host(port int) (string, int, error) {
	if !m.hosted.CompareAndSwap(false, true) {
		return "", 0, errors.New("multiplexer already hosted")
	}

	address := net.JoinHostPort(m.config.BindHost, strconv.Itoa(port))
	listener, err := transport.Listen(address, transport.ServerOptions{
		Certificate: m.config.Certificate,
		Key:         m.config.Key,
		MinVersion:  m.config.MinVersion,
		Timeout:     m.config.Timeout,
		Codec:       m.config.Codec,
	})
	if err != nil {
		m.hosted.Store(false)
		return "", 0, err
	}
	m.listener = listener
	m.running.Store(true)

	m.goroutines.Add(1)
	go m.accept()
	go m.loop()

	bound := listener.Addr().(*net.TCPAddr)
	m.logger.Info("hosting", "address", bound.String())
	return bound.IP.String(), bound.Port, nil
}

// Running reports whether the multiplexer is hosting.
func (m *Multiplexer) Running() bool {
	return m.running.Load()
}

// Submit runs fn on the dispatch loop and waits for it to return. It
// fails with ErrNotRunning when the multiplexer is not hosting. It must
// not be called from the dispatch loop itself.
func (m *Multiplexer) Submit(fn func()) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case m.tasks <- task:
	case <-m.stop:
		return ErrNotRunning
	}
	<-finished
	return nil
}

// SendTo writes payload to conn.
func (m *Multiplexer) SendTo(conn *Connection, payload any) error {
	return conn.conn.Send(payload)
}

// ReceiveFrom reads one envelope from conn. Only Config.Handshake
// should call it; admitted connections are read by their reader.
func (m *Multiplexer) ReceiveFrom(conn *Connection, raw *envelope.Raw) error {
	return conn.conn.Receive(raw)
}

// DisconnectClient removes conn from the open set and closes it.
// Calls for a connection that is not open are no-ops. Dispatch loop
// only.
func (m *Multiplexer) DisconnectClient(conn *Connection) {
	if !conn.open {
		return
	}
	conn.open = false
	m.open = slices.DeleteFunc(m.open, func(c *Connection) bool { return c == conn })
	close(conn.closed)
	if err := conn.conn.Close(); err != nil {
		m.logger.Debug("closing connection", "connection", conn, "error", err)
	}
	m.logger.Info("connection closed", "connection", conn, "open", len(m.open))
}

// Connections returns the open connections in admission order.
// Dispatch loop only.
func (m *Multiplexer) Connections() []*Connection {
	return slices.Clone(m.open)
}

// Close stops the dispatch loop, waits for it to exit, and closes the
// listener and every pending and open connection. It is idempotent.
func (m *Multiplexer) Close() error {
	m.closeOnce.Do(func() {
		if !m.hosted.Load() {
			return
		}
		m.running.Store(false)
		close(m.stop)
		m.cancel()
		<-m.done

		var errs []error
		if err := m.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("closing listener: %w", err))
		}
		for conn := range m.pending {
			conn.conn.Close()
		}
		clear(m.pending)
		for _, conn := range m.open {
			conn.open = false
			close(conn.closed)
			conn.conn.Close()
		}
		m.open = nil

		m.goroutines.Wait()
		m.drainEvents()
		m.closeErr = errors.Join(errs...)
		m.logger.Info("stopped hosting")
	})
	return m.closeErr
}

// drainEvents closes connections whose accept event was queued but
// never handled. Every other queued event refers to a pending or open
// connection that Close has already released. Call only after every
// goroutine that posts has exited.
func (m *Multiplexer) drainEvents() {
	for {
		select {
		case ev := <-m.events:
			if ev.kind == eventAccepted {
				m.logger.Debug("closing unhandled connection", "connection", ev.conn)
				ev.conn.conn.Close()
			}
		default:
			return
		}
	}
}

// post delivers ev to the dispatch loop. It returns false once the
// multiplexer is stopping.
func (m *Multiplexer) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.stop:
		return false
	}
}

func (m *Multiplexer) loop() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case ev := <-m.events:
			m.handle(ev)
		case task := <-m.tasks:
			task()
		}
	}
}

func (m *Multiplexer) handle(ev event) {
	conn := ev.conn
	switch ev.kind {
	case eventAccepted:
		m.pending[conn] = struct{}{}
		m.goroutines.Add(1)
		go m.handshake(conn)

	case eventAdmitted:
		if _, ok := m.pending[conn]; !ok {
			return
		}
		delete(m.pending, conn)
		conn.open = true
		m.open = append(m.open, conn)
		m.logger.Info("connection admitted", "connection", conn, "open", len(m.open))
		m.config.Connect(conn)
		if conn.open {
			m.goroutines.Add(1)
			go m.read(conn)
		}

	case eventRejected:
		delete(m.pending, conn)
		m.logger.Info("connection rejected", "connection", conn, "error", ev.err)
		conn.conn.Close()

	case eventReceived:
		if conn.open {
			m.config.Data(conn, ev.raw)
		}

	case eventBroken:
		if !conn.open {
			return
		}
		if netutil.IsExpectedCloseError(ev.err) {
			m.logger.Info("client closed the connection", "connection", conn)
		} else {
			m.logger.Error("connection broken", "connection", conn, "error", ev.err)
		}
		m.config.Disconnect(conn, ev.err)
		m.DisconnectClient(conn)
	}
}

func (m *Multiplexer) accept() {
	defer m.goroutines.Done()
	for {
		accepted, err := m.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			m.logger.Warn("accept failed", "error", err)
			select {
			case <-m.stop:
				return
			case <-time.After(acceptBackoff):
			}
			continue
		}
		conn := newConnection(accepted)
		m.logger.Debug("connection accepted", "connection", conn)
		if !m.post(event{kind: eventAccepted, conn: conn}) {
			accepted.Close()
			return
		}
	}
}

func (m *Multiplexer) handshake(conn *Connection) {
	defer m.goroutines.Done()

	ctx := m.ctx
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	err := conn.conn.Handshake(ctx)
	if err == nil {
		conn.name, err = m.config.Handshake(ctx, conn)
	}
	kind := eventAdmitted
	if err != nil {
		kind = eventRejected
	}
	// After a failed post the connection is still pending, and Close
	// releases it.
	m.post(event{kind: kind, conn: conn, err: err})
}

func (m *Multiplexer) read(conn *Connection) {
	defer m.goroutines.Done()
	for {
		select {
		case <-conn.closed:
			return
		case <-m.stop:
			return
		default:
		}

		ready, err := conn.conn.WaitReadable(m.config.PollInterval)
		if err == nil && !ready {
			continue
		}

		var raw envelope.Raw
		if err == nil {
			err = conn.conn.Receive(&raw)
		}
		if err != nil {
			m.post(event{kind: eventBroken, conn: conn, err: err})
			return
		}
		if !m.post(event{kind: eventReceived, conn: conn, raw: raw}) {
			return
		}
	}
}
