// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal front end for a p2paste chat client.
//
// The UI is a bubbletea program with four regions: a scrolling chat log,
// a roster of connected nicknames, a paste box, and a one-line message
// input. A status bar at the bottom shows the current paste holder,
// recent log records, and the keyboard help line.
//
// The network side never touches the model directly. [Handlers] adapts
// a send function (normally tea.Program.Send) into chat.Handlers so
// every received envelope arrives in [Model.Update] as a tea.Msg. The
// model's outbound actions go through a [Sender], which *chat.Client
// satisfies, and always run as tea.Cmds off the update goroutine.
//
// The paste box accepts input only while the server has granted this
// client paste permission. Sending the paste, or a notification that
// someone else now holds the grant, disables it again. Received pastes
// are syntax highlighted with chroma when the language can be guessed;
// chat messages get inline markdown styling through goldmark.
package chatui
