// Package ui renders framed terminal messages for the bake CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Kind selects the colour and prefix of a box.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
)

const defaultWidth = 80

var styles = map[Kind]struct {
	style  lipgloss.Style
	prefix string
}{
	KindInfo:    {lipgloss.NewStyle().Foreground(lipgloss.Color("86")), "ℹ"},
	KindSuccess: {lipgloss.NewStyle().Foreground(lipgloss.Color("42")), "✓"},
	KindWarning: {lipgloss.NewStyle().Foreground(lipgloss.Color("178")), "⚠"},
	KindError:   {lipgloss.NewStyle().Foreground(lipgloss.Color("196")), "✗"},
}

// Box builds a framed message.
type Box struct {
	kind  Kind
	title string
	lines []string
	width int
}

// NewBox creates a box no wider than width columns. A width below 20 falls
// back to 80.
func NewBox(kind Kind, title string, width int) *Box {
	if width < 20 {
		width = defaultWidth
	}
	return &Box{kind: kind, title: title, width: width}
}

// Line appends a line of text.
func (b *Box) Line(format string, args ...interface{}) *Box {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
	return b
}

// Bullet appends a bulleted line.
func (b *Box) Bullet(text string) *Box {
	b.lines = append(b.lines, "• "+text)
	return b
}

// Render returns the box. Lines longer than the box are word-wrapped.
func (b *Box) Render() string {
	s, ok := styles[b.kind]
	if !ok {
		s = styles[KindInfo]
	}
	contentWidth := b.width - 6

	var lines []string
	for _, line := range append([]string{b.title}, b.lines...) {
		if utf8.RuneCountInString(line) <= contentWidth {
			lines = append(lines, line)
			continue
		}
		lines = append(lines, wrapText(line, contentWidth)...)
	}

	inner := 2
	for _, line := range lines {
		if n := utf8.RuneCountInString(line) + 4; n > inner {
			inner = n
		}
	}

	var sb strings.Builder
	sb.WriteString(s.style.Render(topLeft+strings.Repeat(horizontal, inner)+topRight) + "\n")
	for i, line := range lines {
		lead := "  "
		if i == 0 {
			lead = s.style.Bold(true).Render(s.prefix) + " "
		}
		pad := inner - utf8.RuneCountInString(line) - 3
		if pad < 0 {
			pad = 0
		}
		sb.WriteString(fmt.Sprintf("%s %s%s%s%s\n",
			s.style.Render(vertical), lead, line, strings.Repeat(" ", pad), s.style.Render(vertical)))
	}
	sb.WriteString(s.style.Render(bottomLeft+strings.Repeat(horizontal, inner)+bottomRight) + "\n")
	return sb.String()
}

// Width reports the usable width for boxes written to w: the terminal
// width minus a margin, or 80 when w is not a terminal.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width - 8
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(word)+1 <= maxWidth {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
