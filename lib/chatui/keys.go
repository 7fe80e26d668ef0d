// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the chat UI.
type KeyMap struct {
	Send         key.Binding // Send the message input.
	RequestPaste key.Binding // Ask the server for paste permission.
	SendPaste    key.Binding // Send the paste box (only while granted).
	ClearPaste   key.Binding // Empty the paste box.
	FocusToggle  key.Binding // Move focus between input and paste box.

	PageUp   key.Binding
	PageDown key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Bindings avoid plain
// letters because both focusable regions take free text.
var DefaultKeyMap = KeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	RequestPaste: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "request paste"),
	),
	SendPaste: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "send paste"),
	),
	ClearPaste: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("C-l", "clear paste"),
	),
	FocusToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "focus"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

// ShortHelp returns the bindings shown in the status bar help line.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		keys.Send,
		keys.RequestPaste,
		keys.SendPaste,
		keys.ClearPaste,
		keys.FocusToggle,
		keys.Quit,
	}
}

// FullHelp returns every binding, grouped for help.Model's full view.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.Send, keys.RequestPaste, keys.SendPaste, keys.ClearPaste},
		{keys.FocusToggle, keys.PageUp, keys.PageDown, keys.Quit},
	}
}
