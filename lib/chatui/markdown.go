// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	messageParserInstance goldmark.Markdown
	messageParserOnce     sync.Once
)

func getMessageParser() goldmark.Markdown {
	messageParserOnce.Do(func() {
		messageParserInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Linkify,
			),
		)
	})
	return messageParserInstance
}

// renderMessageMarkdown styles the inline markdown in one chat message.
// Chat text is short and mostly prose, so block structure is flattened:
// paragraphs and code blocks become lines, list items get a bullet, and
// everything else contributes its text. The result is not wrapped; the
// log does that at display width.
func renderMessageMarkdown(input string, theme Theme, lipRenderer *lipgloss.Renderer) string {
	if strings.TrimSpace(input) == "" {
		return input
	}
	source := []byte(input)
	document := getMessageParser().Parser().Parse(text.NewReader(source))

	renderer := &messageRenderer{
		source:      source,
		theme:       theme,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, renderer.walk)
	renderer.endLine()

	return strings.Join(renderer.lines, "\n")
}

type messageRenderer struct {
	source      []byte
	theme       Theme
	lipRenderer *lipgloss.Renderer

	lines []string
	line  strings.Builder

	boldCount          int
	italicCount        int
	strikethroughCount int
}

func (renderer *messageRenderer) newStyle() lipgloss.Style {
	return renderer.lipRenderer.NewStyle()
}

// endLine closes the line under construction, if any.
func (renderer *messageRenderer) endLine() {
	if renderer.line.Len() == 0 {
		return
	}
	renderer.lines = append(renderer.lines, renderer.line.String())
	renderer.line.Reset()
}

func (renderer *messageRenderer) styledText(content string) string {
	style := renderer.newStyle().Foreground(renderer.theme.NormalText)
	if renderer.boldCount > 0 {
		style = style.Bold(true)
	}
	if renderer.italicCount > 0 {
		style = style.Italic(true)
	}
	if renderer.strikethroughCount > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (renderer *messageRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock, ast.KindHeading:
		if !entering {
			renderer.endLine()
		}

	case ast.KindListItem:
		if entering {
			renderer.endLine()
			renderer.line.WriteString(renderer.newStyle().Foreground(renderer.theme.FaintText).Render("• "))
		}

	case ast.KindThematicBreak:
		if entering {
			renderer.endLine()
			renderer.lines = append(renderer.lines, renderer.newStyle().Foreground(renderer.theme.FaintText).Render("───"))
		}

	case ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock:
		if entering {
			renderer.endLine()
			renderer.renderBlockLines(node)
		}
		return ast.WalkSkipChildren, nil

	case ast.KindText:
		if entering {
			renderer.handleText(node.(*ast.Text))
		}

	case ast.KindString:
		if entering {
			renderer.line.WriteString(renderer.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		renderer.handleEmphasis(node.(*ast.Emphasis), entering)

	case extast.KindStrikethrough:
		if entering {
			renderer.strikethroughCount++
		} else {
			renderer.strikethroughCount--
		}

	case ast.KindCodeSpan:
		if entering {
			renderer.renderCodeSpan(node)
		}
		return ast.WalkSkipChildren, nil

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(renderer.source))
			renderer.line.WriteString(renderer.linkStyle().Render(url))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		link := node.(*ast.Link)
		if !entering && len(link.Destination) > 0 {
			renderer.line.WriteString(" " + renderer.linkStyle().Render("("+string(link.Destination)+")"))
		}

	case ast.KindRawHTML:
		if entering {
			segments := node.(*ast.RawHTML).Segments
			for index := 0; index < segments.Len(); index++ {
				segment := segments.At(index)
				renderer.line.WriteString(renderer.styledText(string(segment.Value(renderer.source))))
			}
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (renderer *messageRenderer) handleText(node *ast.Text) {
	renderer.line.WriteString(renderer.styledText(string(node.Segment.Value(renderer.source))))
	if node.SoftLineBreak() {
		renderer.line.WriteString(" ")
	}
	if node.HardLineBreak() {
		renderer.endLine()
	}
}

func (renderer *messageRenderer) handleEmphasis(node *ast.Emphasis, entering bool) {
	counter := &renderer.italicCount
	if node.Level >= 2 {
		counter = &renderer.boldCount
	}
	if entering {
		*counter++
	} else {
		*counter--
	}
}

func (renderer *messageRenderer) renderCodeSpan(node ast.Node) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			code.Write(textNode.Segment.Value(renderer.source))
		} else if stringNode, ok := child.(*ast.String); ok {
			code.Write(stringNode.Value)
		}
	}
	renderer.line.WriteString(renderer.codeStyle().Render(code.String()))
}

// renderBlockLines emits the raw source lines of a code or HTML block.
func (renderer *messageRenderer) renderBlockLines(node ast.Node) {
	lines := node.Lines()
	style := renderer.codeStyle()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		line := strings.TrimRight(string(segment.Value(renderer.source)), "\n")
		renderer.lines = append(renderer.lines, style.Render(line))
	}
}

func (renderer *messageRenderer) codeStyle() lipgloss.Style {
	return renderer.newStyle().
		Foreground(renderer.theme.CodeForeground).
		Background(renderer.theme.CodeBackground)
}

func (renderer *messageRenderer) linkStyle() lipgloss.Style {
	return renderer.newStyle().Foreground(renderer.theme.LinkForeground).Underline(true)
}
