// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/lib/netutil"
)

// ErrConnectionBroken is returned for every failure of an established
// or attempted connection. The underlying cause is wrapped alongside it.
var ErrConnectionBroken = errors.New("connection broken")

// closeNotifyTimeout bounds how long Close waits to deliver the TLS
// close-notify alert to a peer that has stopped reading.
const closeNotifyTimeout = time.Second

// Conn is a framed, codec-aware connection. Send may be called from any
// number of goroutines. Receive and WaitReadable must be called from a
// single reader goroutine.
type Conn struct {
	conn    net.Conn
	reader  *bufio.Reader
	codec   codec.Codec
	timeout time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps conn. A nil codec selects JSON. A zero timeout disables
// per-frame deadlines.
func NewConn(conn net.Conn, payloadCodec codec.Codec, timeout time.Duration) *Conn {
	if payloadCodec == nil {
		payloadCodec = codec.JSON
	}
	return &Conn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		codec:   payloadCodec,
		timeout: timeout,
	}
}

func broken(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnectionBroken, operation, err)
}

// Send serializes v and writes it as one frame within the write
// timeout.
func (c *Conn) Send(v any) error {
	payload, err := c.codec.Marshal(v)
	if err != nil {
		return broken("encoding "+c.codec.Name()+" payload", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return broken("setting write deadline", err)
		}
	}
	if err := WriteFrame(c.conn, payload); err != nil {
		return broken("sending", err)
	}
	return nil
}

// Receive reads one frame within the read timeout and deserializes it
// into v.
func (c *Conn) Receive(v any) error {
	// A zero deadline clears whatever WaitReadable left behind.
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return broken("setting read deadline", err)
	}
	payload, err := ReadFrame(c.reader)
	if err != nil {
		return broken("receiving", err)
	}
	if err := c.codec.Unmarshal(payload, v); err != nil {
		return broken("decoding "+c.codec.Name()+" payload", err)
	}
	return nil
}

// WaitReadable reports whether at least one byte of a frame is
// available within wait. It returns (false, nil) when wait elapses or
// [Conn.Interrupt] is called, and an error only when the connection
// itself has failed. Nothing is consumed.
func (c *Conn) WaitReadable(wait time.Duration) (bool, error) {
	if c.reader.Buffered() > 0 {
		return true, nil
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return false, broken("setting read deadline", err)
	}
	// A deadline error from crypto/tls is not sticky, so the connection
	// stays usable for the next poll.
	if _, err := c.reader.Peek(1); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, broken("waiting for frame", err)
	}
	return true, nil
}

// Interrupt wakes a reader blocked in WaitReadable. The reader sees a
// timeout and may check its stop signal.
func (c *Conn) Interrupt() {
	c.conn.SetReadDeadline(time.Now())
}

// Handshake completes the TLS handshake within the connection timeout.
// It is a no-op for connections that are not TLS or have already
// handshaken.
func (c *Conn) Handshake(ctx context.Context) error {
	tlsConn, ok := c.conn.(*tls.Conn)
	if !ok {
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return broken("TLS handshake", err)
	}
	return nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close shuts the connection down in both directions and releases it.
// Shutdown errors caused by a peer that is already gone are not
// reported. Close is idempotent; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.shutdown()
	})
	return c.closeErr
}

func (c *Conn) shutdown() error {
	var shutdownErr error

	raw := c.conn
	if tlsConn, ok := c.conn.(*tls.Conn); ok {
		raw = tlsConn.NetConn()
		if tlsConn.ConnectionState().HandshakeComplete {
			tlsConn.SetWriteDeadline(time.Now().Add(closeNotifyTimeout))
			shutdownErr = tlsConn.CloseWrite()
		}
	}
	if halfCloser, ok := raw.(interface{ CloseWrite() error }); ok && shutdownErr == nil {
		shutdownErr = halfCloser.CloseWrite()
	}
	if peerGone(shutdownErr) {
		shutdownErr = nil
	}

	closeErr := c.conn.Close()
	if peerGone(closeErr) {
		closeErr = nil
	}

	if err := errors.Join(shutdownErr, closeErr); err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}

// peerGone reports whether a shutdown error only means the peer stopped
// listening first.
func peerGone(err error) bool {
	return netutil.IsExpectedCloseError(err) || errors.Is(err, os.ErrDeadlineExceeded)
}
