// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the p2paste chat server. It identifies clients,
// keeps the roster, relays chat, and arbitrates paste permission.
//
// # Roster and broadcast
//
// A connection joins the roster once its first envelope is a valid
// IDENTIFY. The server then unicasts the welcome message, broadcasts
// the updated CLIENT_LIST, and announces the join. On disconnect it
// removes the entry, broadcasts the list again, and announces the
// departure. Every relayed or broadcast envelope carries a sender:
// the originating client's nickname, or the server identifier for
// envelopes the server itself produces. A broadcast reaches every
// identified connection except the one whose action caused it.
//
// # Paste permission
//
// At most one client, the holder, may publish paste content at a time.
// PASTE_REQUEST envelopes join a bounded FIFO queue. A dedicated
// processor goroutine takes requesters from the queue one at a time
// and grants each in turn: it unicasts PASTE_GRANTED to the requester,
// broadcasts PASTE_NOTIFICATION with the holder's nickname to everyone
// else, then waits until the holder's PASTE arrives or the maximum
// paste duration elapses. Either way the grant ends and the next
// requester is served. A PASTE from anyone but the current holder is
// dropped. No notice is sent when a grant expires.
//
// All roster and holder state is owned by the multiplexer's dispatch
// loop. The processor changes it only through [mux.Multiplexer.Submit].
package session
