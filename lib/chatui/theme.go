// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat UI. All colors are ANSI
// 256-color codes.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Nicknames in the chat log. OwnNickname colors lines this client
	// sent; ServerNickname colors announcements from the server.
	Nickname       lipgloss.Color
	OwnNickname    lipgloss.Color
	ServerNickname lipgloss.Color

	// Inline markdown.
	CodeForeground lipgloss.Color
	CodeBackground lipgloss.Color
	LinkForeground lipgloss.Color

	// UI chrome.
	BorderColor      lipgloss.Color
	FocusBorderColor lipgloss.Color
	GrantedBorder    lipgloss.Color
	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color
	StatusWarning    lipgloss.Color
	StatusError      lipgloss.Color
	HolderForeground lipgloss.Color
}

// DefaultTheme is a dark-terminal palette.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),

	Nickname:       lipgloss.Color("75"),
	OwnNickname:    lipgloss.Color("114"),
	ServerNickname: lipgloss.Color("180"),

	CodeForeground: lipgloss.Color("223"),
	CodeBackground: lipgloss.Color("236"),
	LinkForeground: lipgloss.Color("39"),

	BorderColor:      lipgloss.Color("240"),
	FocusBorderColor: lipgloss.Color("75"),
	GrantedBorder:    lipgloss.Color("114"),
	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),
	StatusWarning:    lipgloss.Color("214"),
	StatusError:      lipgloss.Color("196"),
	HolderForeground: lipgloss.Color("213"),
}
