// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/lib/clock"
	"github.com/p2paste/p2paste/mux"
)

// Defaults for zero Config fields.
const (
	DefaultIdentifier       = "Server"
	DefaultWelcomeMessage   = "Welcome to p2paste chat"
	DefaultMaxPasteDuration = 15 * time.Second
	DefaultRequestQueue     = 64
)

// Config configures a Server.
type Config struct {
	// Identifier is the sender stamped on server-originated envelopes.
	Identifier string

	// WelcomeMessage is unicast to each client after identification.
	WelcomeMessage string

	// MaxPasteDuration is how long a holder keeps paste permission.
	MaxPasteDuration time.Duration

	// RequestQueue bounds the number of pending paste requests.
	// Requests beyond it are dropped.
	RequestQueue int

	// Network configures the listener and connection handling. Its
	// callbacks are replaced by the Server's own.
	Network mux.Config

	// Clock times paste grants. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives server activity. If nil, a no-op logger is used.
	// It is also passed to the multiplexer when Network.Logger is nil.
	Logger *slog.Logger
}

// Server is a p2paste chat server.
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock
	mux    *mux.Multiplexer

	requests      chan *mux.Connection
	pasteReceived chan struct{}

	stop          chan struct{}
	processorDone chan struct{}
	closeOnce     sync.Once

	// Owned by the dispatch loop.
	roster map[*mux.Connection]string
	holder *mux.Connection
}

// New returns a Server that is not yet hosting.
func New(config Config) *Server {
	if config.Identifier == "" {
		config.Identifier = DefaultIdentifier
	}
	if config.WelcomeMessage == "" {
		config.WelcomeMessage = DefaultWelcomeMessage
	}
	if config.MaxPasteDuration <= 0 {
		config.MaxPasteDuration = DefaultMaxPasteDuration
	}
	if config.RequestQueue <= 0 {
		config.RequestQueue = DefaultRequestQueue
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		config:        config,
		logger:        logger,
		clock:         config.Clock,
		requests:      make(chan *mux.Connection, config.RequestQueue),
		pasteReceived: make(chan struct{}, 1),
		stop:          make(chan struct{}),
		processorDone: make(chan struct{}),
		roster:        make(map[*mux.Connection]string),
	}

	network := config.Network
	if network.Logger == nil {
		network.Logger = logger
	}
	network.Handshake = s.identify
	network.Connect = s.connected
	network.Data = s.received
	network.Disconnect = s.disconnected
	s.mux = mux.New(network)
	return s
}

// Host starts listening on port and starts the paste processor. It
// returns the bound host and port.
func (s *Server) Host(port int) (string, int, error) {
	host, boundPort, err := s.mux.Host(port)
	if err != nil {
		return "", 0, err
	}
	go s.processPasteRequests()
	s.logger.Info("chat server started",
		"identifier", s.config.Identifier,
		"host", host,
		"port", boundPort,
		"max_paste_duration", s.config.MaxPasteDuration,
	)
	return host, boundPort, nil
}

// Running reports whether the server is hosting.
func (s *Server) Running() bool {
	return s.mux.Running()
}

// Close stops the paste processor, then the multiplexer, closing every
// connection.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.mux.Running() {
			<-s.processorDone
		}
		err = s.mux.Close()
		s.logger.Info("chat server stopped")
	})
	return err
}

// Roster returns the server identifier and the nicknames of every
// identified client, sorted. It returns nil when the server is not
// running.
func (s *Server) Roster() []string {
	var names []string
	s.mux.Submit(func() {
		names = append(s.clientNames(), s.config.Identifier)
		slices.Sort(names)
	})
	return names
}

// Holder returns the nickname of the current paste permission holder,
// or "" when nobody holds it.
func (s *Server) Holder() string {
	var nickname string
	s.mux.Submit(func() {
		if s.holder != nil {
			nickname = s.roster[s.holder]
		}
	})
	return nickname
}

// identify runs on the new connection's handshake goroutine.
func (s *Server) identify(ctx context.Context, conn *mux.Connection) (string, error) {
	var raw envelope.Raw
	if err := s.mux.ReceiveFrom(conn, &raw); err != nil {
		return "", fmt.Errorf("%w: %w", envelope.ErrIdentificationFailed, err)
	}
	nickname, err := envelope.IdentifyClient(raw)
	if err != nil {
		return "", err
	}
	s.logger.Debug("client identified", "connection", conn, "nickname", nickname)
	return nickname, nil
}

func (s *Server) connected(conn *mux.Connection) {
	nickname := conn.Name()
	s.roster[conn] = nickname

	welcome := envelope.AddSender(envelope.Message(s.config.WelcomeMessage), s.config.Identifier)
	if err := s.mux.SendTo(conn, welcome); err != nil {
		s.logger.Info("welcome message failed, dropping client", "connection", conn, "error", err)
		delete(s.roster, conn)
		s.mux.DisconnectClient(conn)
		return
	}

	s.broadcastClientList()
	host, port := conn.HostPort()
	s.announce(fmt.Sprintf("%s joined from %s:%s", nickname, host, port))
}

// disconnected is the single teardown path for identified clients:
// connection loss, broadcast failure, and grant failure all end here.
func (s *Server) disconnected(conn *mux.Connection, err error) {
	nickname, identified := s.roster[conn]
	s.mux.DisconnectClient(conn)
	if !identified {
		return
	}
	delete(s.roster, conn)
	if s.holder == conn {
		s.releasePaste()
	}
	s.logger.Info("client left", "nickname", nickname, "reason", err)

	s.broadcastClientList()
	s.announce(nickname + " left.")
}

func (s *Server) received(conn *mux.Connection, raw envelope.Raw) {
	env, err := envelope.Decode(raw, false)
	if err != nil {
		s.logger.Warn("dropping malformed envelope", "connection", conn, "error", err)
		return
	}
	nickname := s.roster[conn]

	switch env.Type {
	case envelope.TypePasteRequest:
		s.enqueuePasteRequest(conn)
	case envelope.TypePaste:
		if conn != s.holder {
			s.logger.Info("ignoring paste from a client without permission, it may have timed out",
				"nickname", nickname,
				"digest", envelope.Digest(env.Data.(string)),
			)
			return
		}
		s.releasePaste()
		s.logger.Info("paste received",
			"nickname", nickname,
			"bytes", len(env.Data.(string)),
			"digest", envelope.Digest(env.Data.(string)),
		)
		s.broadcast(env, nickname, conn)
	case envelope.TypeMessage:
		s.broadcast(env, nickname, conn)
	default:
		s.logger.Warn("dropping envelope clients may not send", "nickname", nickname, "type", env.Type)
	}
}

// broadcast stamps env with sender and sends it to every identified
// connection except exclude. Recipients that fail are torn down after
// the fan-out so one broken client cannot cut the others off.
func (s *Server) broadcast(env envelope.Envelope, sender string, exclude *mux.Connection) {
	stamped := envelope.AddSender(env, sender)

	type failure struct {
		conn *mux.Connection
		err  error
	}
	var failures []failure
	for _, conn := range s.mux.Connections() {
		if conn == exclude {
			continue
		}
		if _, identified := s.roster[conn]; !identified {
			continue
		}
		if err := s.mux.SendTo(conn, stamped); err != nil {
			s.logger.Error("broadcast failed", "connection", conn, "type", env.Type, "error", err)
			failures = append(failures, failure{conn, err})
		}
	}
	s.logger.Debug("broadcast", "type", env.Type, "sender", sender)

	for _, failed := range failures {
		s.disconnected(failed.conn, failed.err)
	}
}

// announce broadcasts a server MESSAGE to every client.
func (s *Server) announce(text string) {
	s.broadcast(envelope.Message(text), s.config.Identifier, nil)
}

func (s *Server) broadcastClientList() {
	names := s.clientNames()
	slices.Sort(names)
	s.broadcast(envelope.ClientList(names), s.config.Identifier, nil)
}

// clientNames returns the nicknames of identified clients, excluding
// the server identifier.
func (s *Server) clientNames() []string {
	names := make([]string, 0, len(s.roster))
	for _, nickname := range s.roster {
		names = append(names, nickname)
	}
	return names
}
