package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Theme defines the colour palette of human-readable output.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Muted:   lipgloss.Color("#6C7086"), // Medium gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Warning: lipgloss.Color("#F9E2AF"), // Yellow
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// Styles renders output with lipgloss, or as plain text when colour is off.
type Styles struct {
	plain bool

	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates styles for the theme.
func NewStyles(theme *Theme, plain bool) *Styles {
	return &Styles{
		plain:   plain,
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Badge:   lipgloss.NewStyle().Bold(true).Padding(0, 1),
	}
}

// stylesFor returns styles for w, plain unless w is a terminal.
func stylesFor(w io.Writer) *Styles {
	return NewStyles(DefaultTheme(), !isTerminal(w))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

func (s *Styles) render(style lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return style.Render(text)
}

// Heading renders a section title.
func (s *Styles) Heading(text string) string {
	return s.render(s.Title, text)
}

// Dim renders secondary text.
func (s *Styles) Dim(text string) string {
	return s.render(s.Muted, text)
}

// OK renders a positive status.
func (s *Styles) OK(text string) string {
	return s.render(s.Success, text)
}

// Warn renders a degraded status.
func (s *Styles) Warn(text string) string {
	return s.render(s.Warning, text)
}

// Fail renders a failure.
func (s *Styles) Fail(text string) string {
	return s.render(s.Error, text)
}

// Confidence renders a confidence grade as a badge.
func (s *Styles) Confidence(c domain.Confidence) string {
	label := strings.ToUpper(c.String())
	if s.plain {
		return "[" + label + "]"
	}
	badge := s.Badge
	switch c {
	case domain.ConfidenceHigh:
		badge = badge.Foreground(lipgloss.Color("#1E1E2E")).Background(DefaultTheme().Success)
	case domain.ConfidenceMedium:
		badge = badge.Foreground(lipgloss.Color("#1E1E2E")).Background(DefaultTheme().Warning)
	default:
		badge = badge.Foreground(lipgloss.Color("#1E1E2E")).Background(DefaultTheme().Error)
	}
	return badge.Render(label)
}

// Status renders a reachability flag.
func (s *Styles) Status(configured, reachable bool) string {
	switch {
	case !configured:
		return s.Dim("not configured")
	case reachable:
		return s.OK("ok")
	default:
		return s.Fail("unreachable")
	}
}
