// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/p2paste/p2paste/transport"
)

// Connection is one accepted client socket.
type Connection struct {
	id     uuid.UUID
	conn   *transport.Conn
	remote net.Addr

	// name is set by the handshake goroutine before admission and is
	// read-only afterwards.
	name string

	// open is owned by the dispatch loop.
	open bool

	// closed is closed by the dispatch loop when the connection leaves
	// the open set, and stops its reader.
	closed chan struct{}
}

func newConnection(conn *transport.Conn) *Connection {
	return &Connection{
		id:     uuid.New(),
		conn:   conn,
		remote: conn.RemoteAddr(),
		closed: make(chan struct{}),
	}
}

// ID is a random identifier used to correlate log lines.
func (c *Connection) ID() string { return c.id.String() }

// RemoteAddr is the client's address.
func (c *Connection) RemoteAddr() net.Addr { return c.remote }

// Name is the value Config.Handshake returned for this connection.
// It is empty until the connection has been admitted.
func (c *Connection) Name() string { return c.name }

// HostPort splits the client address into host and port.
func (c *Connection) HostPort() (host, port string) {
	host, port, err := net.SplitHostPort(c.remote.String())
	if err != nil {
		return c.remote.String(), ""
	}
	return host, port
}

func (c *Connection) String() string {
	if c.name != "" {
		return c.name + "@" + c.remote.String()
	}
	return c.remote.String()
}

// LogValue groups the identifying attributes of a connection.
func (c *Connection) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", c.id.String()),
		slog.String("address", c.remote.String()),
	}
	if c.name != "" {
		attrs = append(attrs, slog.String("name", c.name))
	}
	return slog.GroupValue(attrs...)
}
