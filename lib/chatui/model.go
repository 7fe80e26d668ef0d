// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/p2paste/p2paste/envelope"
)

// FocusRegion identifies which region receives typed text.
type FocusRegion int

const (
	// FocusInput sends typed text to the message input.
	FocusInput FocusRegion = iota
	// FocusPaste sends typed text to the paste box. Only reachable
	// while this client holds paste permission.
	FocusPaste
)

const (
	rosterWidth     = 22
	pasteBoxHeight  = 6
	defaultServer   = "Server"
	logWrapBreakers = " ,.;-+|/"
)

// Config configures a Model.
type Config struct {
	// Nickname is this client's identified name.
	Nickname string

	// Sender performs outbound actions.
	Sender Sender

	// Keys overrides DefaultKeyMap when non-nil.
	Keys *KeyMap

	// Theme overrides DefaultTheme when non-nil.
	Theme *Theme

	// ColorProfile is the terminal color profile for styled output.
	// The zero value is termenv.TrueColor.
	ColorProfile termenv.Profile
}

// Model is the bubbletea model for a chat session.
type Model struct {
	nickname string
	sender   Sender
	keys     KeyMap
	theme    Theme
	renderer *lipgloss.Renderer

	width  int
	height int
	ready  bool

	log      viewport.Model
	entries  []string
	input    textinput.Model
	pasteBox textarea.Model
	help     help.Model
	focus    FocusRegion

	roster     []string
	serverName string
	holder     string
	canPaste   bool
	requested  bool
	connected  bool

	status         string
	statusLevel    slog.Level
	statusSequence int
}

// NewModel returns a model for a client already identified as
// config.Nickname.
func NewModel(config Config) Model {
	keys := DefaultKeyMap
	if config.Keys != nil {
		keys = *config.Keys
	}
	theme := DefaultTheme
	if config.Theme != nil {
		theme = *config.Theme
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message"
	input.Focus()

	pasteBox := textarea.New()
	pasteBox.Placeholder = "C-r to request paste permission"
	pasteBox.ShowLineNumbers = false
	pasteBox.CharLimit = 0
	pasteBox.MaxHeight = 0
	pasteBox.MaxWidth = 0
	pasteBox.SetHeight(pasteBoxHeight)
	pasteBox.Blur()

	return Model{
		nickname:   config.Nickname,
		sender:     config.Sender,
		keys:       keys,
		theme:      theme,
		renderer:   newRenderer(config.ColorProfile),
		log:        viewport.New(0, 0),
		input:      input,
		pasteBox:   pasteBox,
		help:       help.New(),
		serverName: defaultServer,
		connected:  true,
	}
}

func (model Model) Init() tea.Cmd {
	return textinput.Blink
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.layout()
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case MessageMsg:
		model.appendEntry(model.renderMessage(message.Sender, message.Text))
		return model, nil

	case PasteMsg:
		if message.Sender == model.holder {
			model.holder = ""
		}
		model.appendEntry(model.renderPaste(message.Sender, message.Content))
		return model, nil

	case ClientListMsg:
		if message.Sender != "" {
			model.serverName = message.Sender
		}
		model.roster = slices.Clone(message.Names)
		return model, nil

	case PasteGrantedMsg:
		model.canPaste = true
		model.requested = false
		model.holder = model.nickname
		model.appendEntry(model.systemLine("You may paste now. C-s sends the paste box."))
		return model, model.setFocus(FocusPaste)

	case PasteNotificationMsg:
		model.holder = message.Holder
		if message.Holder != model.nickname {
			model.canPaste = false
			model.setFocus(FocusInput)
		}
		model.appendEntry(model.systemLine(message.Holder + " is pasting."))
		return model, nil

	case DisconnectedMsg:
		model.connected = false
		model.canPaste = false
		model.requested = false
		model.holder = ""
		model.setFocus(FocusInput)
		line := "Disconnected from server."
		if message.Err != nil {
			line = fmt.Sprintf("Disconnected from server: %v", message.Err)
		}
		model.appendEntry(model.systemLine(line))
		return model, model.setStatus(line, slog.LevelError)

	case sendResultMsg:
		if message.err != nil {
			return model, model.setStatus(fmt.Sprintf("%s failed: %v", message.action, message.err), slog.LevelError)
		}
		return model, nil

	case logRecordMsg:
		return model, model.setStatus(message.Summary, message.Level)

	case logRecordFadeMsg:
		if message.sequence == model.statusSequence {
			model.status = ""
		}
		return model, nil
	}

	return model.updateFocused(message)
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.RequestPaste):
		if model.canPaste {
			return model, nil
		}
		model.requested = true
		return model, sendCmd("paste request", model.sender.SendPasteRequest)

	case key.Matches(message, model.keys.SendPaste):
		return model.sendPaste()

	case key.Matches(message, model.keys.ClearPaste):
		model.pasteBox.Reset()
		return model, nil

	case key.Matches(message, model.keys.FocusToggle):
		if model.focus == FocusInput && model.canPaste {
			return model, model.setFocus(FocusPaste)
		}
		return model, model.setFocus(FocusInput)

	case key.Matches(message, model.keys.PageUp):
		model.log.HalfViewUp()
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.log.HalfViewDown()
		return model, nil

	case model.focus == FocusInput && key.Matches(message, model.keys.Send):
		return model.sendMessage()
	}

	return model.updateFocused(message)
}

func (model Model) updateFocused(message tea.Msg) (tea.Model, tea.Cmd) {
	var command tea.Cmd
	switch model.focus {
	case FocusPaste:
		model.pasteBox, command = model.pasteBox.Update(message)
	default:
		model.input, command = model.input.Update(message)
	}
	return model, command
}

// sendMessage sends the input line. The server does not echo a
// sender's own message, so the line is added to the log here.
func (model Model) sendMessage() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(model.input.Value())
	if text == "" {
		return model, nil
	}
	model.input.Reset()
	model.appendEntry(model.renderMessage(model.nickname, text))
	return model, sendCmd("message", func() error {
		return model.sender.SendMessage(text)
	})
}

// sendPaste publishes the paste box and gives up the grant. The server
// does not send a paste back to its holder.
func (model Model) sendPaste() (tea.Model, tea.Cmd) {
	if !model.canPaste {
		return model, model.setStatus("No paste permission. C-r requests it.", slog.LevelWarn)
	}
	content := model.pasteBox.Value()
	if strings.TrimSpace(content) == "" {
		return model, nil
	}
	model.canPaste = false
	model.holder = ""
	model.pasteBox.Reset()
	model.setFocus(FocusInput)
	model.appendEntry(model.renderPaste(model.nickname, content))
	return model, sendCmd("paste", func() error {
		return model.sender.SendPaste(content)
	})
}

func (model *Model) setFocus(region FocusRegion) tea.Cmd {
	model.focus = region
	if region == FocusPaste {
		model.input.Blur()
		return model.pasteBox.Focus()
	}
	model.pasteBox.Blur()
	return model.input.Focus()
}

func (model *Model) setStatus(summary string, level slog.Level) tea.Cmd {
	model.statusSequence++
	model.status = summary
	model.statusLevel = level
	return fadeAfter(model.statusSequence)
}

// layout sizes every region from the window size.
func (model *Model) layout() {
	mainWidth := max(model.width-rosterWidth, 10)
	innerWidth := max(mainWidth-2, 1)

	model.input.Width = max(innerWidth-len(model.input.Prompt)-1, 1)
	model.pasteBox.SetWidth(innerWidth)
	model.help.Width = model.width

	// Log box, paste box and input box each carry a two-line border;
	// the status bar takes one line.
	logHeight := model.height - (pasteBoxHeight + 2) - 3 - 1 - 2
	model.log.Width = innerWidth
	model.log.Height = max(logHeight, 1)
	model.refreshLog()
}

func (model *Model) appendEntry(entry string) {
	model.entries = append(model.entries, entry)
	model.refreshLog()
}

// refreshLog rewraps the log at the current width. The view follows
// new entries only when it was already at the bottom.
func (model *Model) refreshLog() {
	if model.log.Width <= 0 {
		return
	}
	following := model.log.AtBottom() || model.log.TotalLineCount() == 0
	wrapped := make([]string, len(model.entries))
	for index, entry := range model.entries {
		wrapped[index] = ansi.Wrap(entry, model.log.Width, logWrapBreakers)
	}
	model.log.SetContent(strings.Join(wrapped, "\n"))
	if following {
		model.log.GotoBottom()
	}
}

func (model Model) nicknameStyle(nickname string) lipgloss.Style {
	style := model.renderer.NewStyle().Bold(true)
	switch nickname {
	case model.nickname:
		return style.Foreground(model.theme.OwnNickname)
	case model.serverName:
		return style.Foreground(model.theme.ServerNickname)
	default:
		return style.Foreground(model.theme.Nickname)
	}
}

func (model Model) renderMessage(sender, text string) string {
	body := renderMessageMarkdown(text, model.theme, model.renderer)
	return model.nicknameStyle(sender).Render(sender) + ": " + body
}

func (model Model) renderPaste(sender, content string) string {
	faint := model.renderer.NewStyle().Foreground(model.theme.FaintText)
	header := fmt.Sprintf("%s pasted %s", model.nicknameStyle(sender).Render(sender), faint.Render("#"+envelope.Digest(content)))
	if language := pasteLanguage(content); language != "" {
		header += faint.Render(" (" + language + ")")
	}
	return header + "\n" + highlightPaste(strings.TrimRight(content, "\n"), model.theme, model.renderer)
}

func (model Model) systemLine(text string) string {
	return model.renderer.NewStyle().Foreground(model.theme.FaintText).Italic(true).Render("* " + text)
}

func (model Model) View() string {
	if !model.ready {
		return "Connecting..."
	}

	mainWidth := max(model.width-rosterWidth, 10)
	box := func(focused bool, accent lipgloss.Color) lipgloss.Style {
		border := model.theme.BorderColor
		if focused {
			border = accent
		}
		return model.renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Width(mainWidth - 2)
	}

	logView := box(false, model.theme.BorderColor).
		Height(model.log.Height).
		Render(model.log.View())
	pasteView := box(model.focus == FocusPaste, model.theme.GrantedBorder).
		Render(model.pasteBox.View())
	inputView := box(model.focus == FocusInput, model.theme.FocusBorderColor).
		Render(model.input.View())

	left := lipgloss.JoinVertical(lipgloss.Left, logView, pasteView, inputView)
	content := lipgloss.JoinHorizontal(lipgloss.Top, left, model.renderRoster(lipgloss.Height(left)))

	return content + "\n" + model.renderStatus()
}

func (model Model) renderRoster(height int) string {
	inner := rosterWidth - 2
	header := model.renderer.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).
		Render(fmt.Sprintf("Online (%d)", len(model.roster)))
	lines := []string{header}
	for _, name := range model.roster {
		marker := "  "
		if name == model.holder {
			marker = model.renderer.NewStyle().Foreground(model.theme.HolderForeground).Render("✎ ")
		}
		lines = append(lines, marker+model.nicknameStyle(name).Render(ansi.Truncate(name, inner-2, "…")))
	}
	return model.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.BorderColor).
		Width(inner).
		Height(max(height-2, 1)).
		Render(strings.Join(lines, "\n"))
}

// renderStatus draws the bottom line: the paste state on the left, then
// a recent log record or the key help.
func (model Model) renderStatus() string {
	var state string
	switch {
	case !model.connected:
		state = model.renderer.NewStyle().Foreground(model.theme.StatusError).Render("offline")
	case model.canPaste:
		state = model.renderer.NewStyle().Foreground(model.theme.GrantedBorder).Bold(true).Render("paste granted")
	case model.holder != "":
		state = model.renderer.NewStyle().Foreground(model.theme.HolderForeground).Render(model.holder + " pasting")
	case model.requested:
		state = model.renderer.NewStyle().Foreground(model.theme.StatusWarning).Render("waiting for paste")
	}

	var detail string
	if model.status != "" {
		color := model.theme.FaintText
		switch {
		case model.statusLevel >= slog.LevelError:
			color = model.theme.StatusError
		case model.statusLevel >= slog.LevelWarn:
			color = model.theme.StatusWarning
		}
		detail = model.renderer.NewStyle().Foreground(color).Render(model.status)
	} else {
		detail = model.help.ShortHelpView(model.keys.ShortHelp())
	}

	line := detail
	if state != "" {
		line = state + "  " + detail
	}
	return ansi.Truncate(line, model.width, "…")
}

// Roster returns the nicknames last reported by the server.
func (model Model) Roster() []string {
	return slices.Clone(model.roster)
}

// Focus returns the region receiving typed text.
func (model Model) Focus() FocusRegion {
	return model.focus
}

// CanPaste reports whether this client currently holds paste permission.
func (model Model) CanPaste() bool {
	return model.canPaste
}
