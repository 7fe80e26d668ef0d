// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines the typed messages p2paste peers exchange
// and validates their shape.
//
// An [Envelope] is a keyed map with an integer type, a type-specific
// data value, and an optional sender nickname:
//
//	{"type": 2, "data": "hello", "sender": "alice"}
//
// Peers never set sender themselves. The server stamps it with
// [AddSender] before relaying or broadcasting, so every envelope a
// client receives carries one and no envelope a client sends does.
//
// The transport hands back a [Raw] map exactly as the codec decoded
// it. [Decode] checks that the type is a known [Type], that the sender
// is present when the caller requires it, and that the data has the
// shape its type calls for, and returns an [Envelope] whose data uses
// canonical Go types (string, []string, or nil). Downstream code can
// use a decoded envelope without further checks. [Identify] is the
// stricter check for the first envelope of a server connection.
package envelope
