// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the p2paste chat client. It connects a [peer.Peer] to
// a server, announces the user's nickname, builds outgoing envelopes,
// and routes incoming ones to per-type handlers.
//
// Handlers run on the peer's receive loop goroutine, one at a time, in
// the order the server sent the envelopes.
package chat
