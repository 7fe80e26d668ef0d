// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// newRenderer returns a lipgloss renderer pinned to profile. Output is
// always for the bubbletea screen, and without the explicit
// SetColorProfile lipgloss re-detects from the environment and renders
// nothing in a test process with no TTY.
func newRenderer(profile termenv.Profile) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}

// pasteLanguage guesses the language of paste content. It returns ""
// when no lexer recognizes it.
func pasteLanguage(content string) string {
	lexer := lexers.Analyse(content)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// highlightPaste syntax-highlights paste content with chroma. Content
// in an unrecognized language, or content chroma fails on, is rendered
// plain in FaintText.
func highlightPaste(content string, theme Theme, lipRenderer *lipgloss.Renderer) string {
	language := pasteLanguage(content)
	if language == "" || lipRenderer.ColorProfile() == termenv.Ascii {
		return plainPaste(content, theme, lipRenderer)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, content, language, "terminal256", "monokai"); err != nil {
		return plainPaste(content, theme, lipRenderer)
	}
	return strings.TrimRight(buffer.String(), "\n")
}

// plainPaste colors each line of content in FaintText. Lines are styled
// one at a time with tab conversion off, so tabs and line widths come
// through exactly as pasted.
func plainPaste(content string, theme Theme, lipRenderer *lipgloss.Renderer) string {
	style := lipRenderer.NewStyle().
		Foreground(theme.FaintText).
		TabWidth(lipgloss.NoTabConversion)
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for index, line := range lines {
		if line == "" {
			continue
		}
		lines[index] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}
