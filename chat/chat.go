// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/peer"
)

// ErrInvalidNickname is returned by Connect for a nickname the server
// would reject.
var ErrInvalidNickname = errors.New("nickname must be at least 3 letters, digits, '.', '_' or '-'")

// Handlers receive decoded server envelopes. Nil handlers ignore their
// envelopes.
type Handlers struct {
	// Message receives chat text and server announcements.
	Message func(sender, text string)

	// Paste receives paste content published by the holder.
	Paste func(sender, content string)

	// ClientList receives the current nicknames of identified clients.
	ClientList func(sender string, names []string)

	// PasteGranted tells this client it may paste now.
	PasteGranted func(sender string)

	// PasteNotification names the client that currently holds paste
	// permission.
	PasteNotification func(sender, holder string)

	// Disconnected reports that the server connection was lost.
	Disconnected func(err error)
}

// Config configures a Client.
type Config struct {
	// Peer configures the connection. Its OnData and OnDisconnected
	// callbacks are replaced by the Client's own.
	Peer peer.Config

	// Handlers receive server envelopes.
	Handlers Handlers

	// Logger receives client activity. If nil, a no-op logger is used.
	// It is also passed to the peer when Peer.Logger is nil.
	Logger *slog.Logger
}

// Client is a p2paste chat client.
type Client struct {
	peer     *peer.Peer
	logger   *slog.Logger
	handlers Handlers
	dispatch map[envelope.Type]func(envelope.Envelope)
}

// New returns a disconnected Client.
func New(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	handlers := config.Handlers
	if handlers.Message == nil {
		handlers.Message = func(string, string) {}
	}
	if handlers.Paste == nil {
		handlers.Paste = func(string, string) {}
	}
	if handlers.ClientList == nil {
		handlers.ClientList = func(string, []string) {}
	}
	if handlers.PasteGranted == nil {
		handlers.PasteGranted = func(string) {}
	}
	if handlers.PasteNotification == nil {
		handlers.PasteNotification = func(string, string) {}
	}
	if handlers.Disconnected == nil {
		handlers.Disconnected = func(error) {}
	}

	c := &Client{logger: logger, handlers: handlers}
	c.dispatch = map[envelope.Type]func(envelope.Envelope){
		envelope.TypeMessage: func(env envelope.Envelope) {
			handlers.Message(env.Sender, env.Data.(string))
		},
		envelope.TypePaste: func(env envelope.Envelope) {
			handlers.Paste(env.Sender, env.Data.(string))
		},
		envelope.TypeClientList: func(env envelope.Envelope) {
			handlers.ClientList(env.Sender, env.Data.([]string))
		},
		envelope.TypePasteGranted: func(env envelope.Envelope) {
			handlers.PasteGranted(env.Sender)
		},
		envelope.TypePasteNotification: func(env envelope.Envelope) {
			handlers.PasteNotification(env.Sender, env.Data.(string))
		},
	}

	peerConfig := config.Peer
	if peerConfig.Logger == nil {
		peerConfig.Logger = logger
	}
	peerConfig.OnData = c.handle
	peerConfig.OnDisconnected = handlers.Disconnected
	c.peer = peer.New(peerConfig)
	return c
}

// Connect validates nickname, connects to address, and identifies. If
// the identification cannot be sent the connection is dropped and the
// error wraps transport.ErrConnectionBroken.
func (c *Client) Connect(ctx context.Context, address, nickname string) error {
	if !envelope.ValidNickname(nickname) {
		return fmt.Errorf("%w: %q", ErrInvalidNickname, nickname)
	}
	if err := c.peer.Connect(ctx, address); err != nil {
		return err
	}
	if err := c.peer.Send(envelope.Identify(nickname)); err != nil {
		c.peer.Disconnect()
		c.logger.Info("server rejected identification", "address", address, "error", err)
		return err
	}
	c.logger.Debug("sent identification", "nickname", nickname)
	return nil
}

// Disconnect closes the connection. It returns nil when not connected.
// It must not be called from a handler.
func (c *Client) Disconnect() error {
	return c.peer.Disconnect()
}

// Connected reports whether the client is connected.
func (c *Client) Connected() bool {
	return c.peer.Connected()
}

// SendMessage sends chat text.
func (c *Client) SendMessage(text string) error {
	return c.send(envelope.Message(text))
}

// SendPaste publishes paste content. The server ignores it unless this
// client holds paste permission.
func (c *Client) SendPaste(content string) error {
	return c.send(envelope.Paste(content))
}

// SendPasteRequest asks for paste permission.
func (c *Client) SendPasteRequest() error {
	return c.send(envelope.PasteRequest())
}

func (c *Client) send(env envelope.Envelope) error {
	if err := c.peer.Send(env); err != nil {
		return err
	}
	c.logger.Debug("envelope sent", "type", env.Type)
	return nil
}

// handle runs on the peer's receive loop.
func (c *Client) handle(raw envelope.Raw) {
	env, err := envelope.Decode(raw, true)
	if err != nil {
		c.logger.Error("envelope verification failed", "envelope", raw, "error", err)
		return
	}
	handler, ok := c.dispatch[env.Type]
	if !ok {
		c.logger.Error("server sent an envelope type clients do not handle", "type", env.Type, "sender", env.Sender)
		return
	}
	c.logger.Debug("envelope received", "type", env.Type, "sender", env.Sender)
	handler(env)
}
