// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer manages the client side of a p2paste connection: one
// outbound TLS connection to a server and the background loop that
// receives envelopes from it.
//
// A [Peer] moves between three states. [Peer.Connect] dials and, on
// success, starts exactly one receive loop. The loop polls for
// readability in short intervals so it can notice [Peer.Disconnect],
// reads one envelope at a time, and hands each to Config.OnData on the
// loop's own goroutine. When the server goes away the loop clears the
// connected state, calls Config.OnDisconnected, and exits.
package peer
