// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/p2paste/p2paste/envelope"
	"github.com/p2paste/p2paste/mux"
)

// enqueuePasteRequest queues conn for paste permission. Dispatch loop
// only.
func (s *Server) enqueuePasteRequest(conn *mux.Connection) {
	select {
	case s.requests <- conn:
		s.logger.Debug("paste request queued", "nickname", s.roster[conn], "queued", len(s.requests))
	default:
		s.logger.Warn("paste request queue full, dropping request",
			"nickname", s.roster[conn],
			"capacity", cap(s.requests),
		)
	}
}

// releasePaste ends the current grant early. Dispatch loop only.
func (s *Server) releasePaste() {
	select {
	case s.pasteReceived <- struct{}{}:
	default:
	}
}

// processPasteRequests grants paste permission to queued requesters
// one at a time until the server stops.
func (s *Server) processPasteRequests() {
	defer close(s.processorDone)
	s.logger.Info("paste request processor started")

	for {
		var requester *mux.Connection
		select {
		case <-s.stop:
			return
		case requester = <-s.requests:
		}

		var granted bool
		if err := s.mux.Submit(func() { granted = s.grant(requester) }); err != nil {
			return
		}
		if !granted {
			continue
		}

		stopping := false
		expiry := s.clock.NewTimer(s.config.MaxPasteDuration)
		select {
		case <-s.pasteReceived:
		case <-expiry.C:
			s.logger.Info("paste permission expired", "connection", requester)
		case <-s.stop:
			stopping = true
		}
		expiry.Stop()

		if err := s.mux.Submit(func() { s.endGrant(requester) }); err != nil || stopping {
			return
		}
	}
}

// grant makes requester the holder and tells everyone. It reports
// whether the grant is in effect. Dispatch loop only.
func (s *Server) grant(requester *mux.Connection) bool {
	nickname, identified := s.roster[requester]
	if !identified {
		s.logger.Debug("skipping paste request from departed client", "connection", requester)
		return false
	}

	// A signal left over from an earlier grant must not end this one.
	select {
	case <-s.pasteReceived:
	default:
	}
	s.holder = requester

	granted := envelope.AddSender(envelope.PasteGranted(), s.config.Identifier)
	if err := s.mux.SendTo(requester, granted); err != nil {
		s.logger.Info("paste grant failed", "nickname", nickname, "error", err)
		s.holder = nil
		s.disconnected(requester, err)
		return false
	}
	s.logger.Info("paste permission granted",
		"nickname", nickname,
		"duration", s.config.MaxPasteDuration,
	)
	s.broadcast(envelope.PasteNotification(nickname), s.config.Identifier, requester)
	return true
}

// endGrant clears the holder if it is still requester. Dispatch loop
// only.
func (s *Server) endGrant(requester *mux.Connection) {
	if s.holder == requester {
		s.holder = nil
	}
}
