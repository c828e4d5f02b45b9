package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown to ANSI-styled text.
type Terminal struct {
	r *glamour.TermRenderer
}

// NewTerminal returns a renderer wrapping at width columns. style is a
// glamour standard style name ("dark", "light", "notty", ...); empty means
// "dark".
func NewTerminal(width int, style string) (*Terminal, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown: terminal renderer: %w", err)
	}
	return &Terminal{r: r}, nil
}

// Render implements Renderer.
func (t *Terminal) Render(src string) (string, error) {
	out, err := t.r.Render(src)
	if err != nil {
		return "", fmt.Errorf("markdown: render terminal: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// Plain returns the source unchanged. It serves front ends that print the
// raw answer text.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(src string) (string, error) {
	return src, nil
}
