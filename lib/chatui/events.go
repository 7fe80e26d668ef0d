// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/p2paste/p2paste/chat"
)

// Sender is the outbound half of a chat client. *chat.Client
// satisfies it.
type Sender interface {
	SendMessage(text string) error
	SendPaste(content string) error
	SendPasteRequest() error
}

// MessageMsg is chat text or a server announcement.
type MessageMsg struct {
	Sender string
	Text   string
}

// PasteMsg is paste content published by the current holder.
type PasteMsg struct {
	Sender  string
	Content string
}

// ClientListMsg replaces the roster. Sender is the server's
// identifier.
type ClientListMsg struct {
	Sender string
	Names  []string
}

// PasteGrantedMsg tells the model this client may paste now.
type PasteGrantedMsg struct{}

// PasteNotificationMsg names the client that now holds paste
// permission.
type PasteNotificationMsg struct {
	Holder string
}

// DisconnectedMsg reports the server connection was lost.
type DisconnectedMsg struct {
	Err error
}

// sendResultMsg carries the outcome of an outbound action run as a
// tea.Cmd.
type sendResultMsg struct {
	action string
	err    error
}

// Handlers returns chat handlers that deliver every server envelope to
// send as one of the Msg types above. Pass program.Send. The handlers
// run on the peer's receive goroutine; send must be safe to call from
// there.
func Handlers(send func(tea.Msg)) chat.Handlers {
	return chat.Handlers{
		Message: func(sender, text string) {
			send(MessageMsg{Sender: sender, Text: text})
		},
		Paste: func(sender, content string) {
			send(PasteMsg{Sender: sender, Content: content})
		},
		ClientList: func(sender string, names []string) {
			send(ClientListMsg{Sender: sender, Names: names})
		},
		PasteGranted: func(string) {
			send(PasteGrantedMsg{})
		},
		PasteNotification: func(_ string, holder string) {
			send(PasteNotificationMsg{Holder: holder})
		},
		Disconnected: func(err error) {
			send(DisconnectedMsg{Err: err})
		},
	}
}

// sendCmd runs an outbound action off the update goroutine.
func sendCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{action: action, err: fn()}
	}
}
