package answer

import (
	"fmt"
	"slices"
	"strings"
)

// Indicator is the display state of a status line.
type Indicator int

const (
	Hidden Indicator = iota
	Shown
	Done
)

func (i Indicator) String() string {
	switch i {
	case Hidden:
		return "hidden"
	case Shown:
		return "shown"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Indicator(%d)", int(i))
	}
}

// MarshalText encodes the indicator by name.
func (i Indicator) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// Visible reports whether the indicator is on screen.
func (i Indicator) Visible() bool {
	return i != Hidden
}

// Page is a snapshot of everything a View displays.
type Page struct {
	Query           string    `json:"query"`
	Search          Indicator `json:"search"`
	Generation      Indicator `json:"generation"`
	ResponseVisible bool      `json:"response_visible"`
	SourcesVisible  bool      `json:"sources_visible"`
	Markdown        string    `json:"markdown"`
	Output          string    `json:"output"`
	Sources         []string  `json:"sources"`
}

func (p Page) clone() Page {
	p.Sources = slices.Clone(p.Sources)
	return p
}

// ParagraphBreak is appended for a chunk with empty data.
const ParagraphBreak = "\n\n"

// Buffer accumulates the markdown of one submission.
type Buffer struct {
	b strings.Builder
}

// Append adds chunk to the buffer. An empty chunk is a paragraph break.
func (b *Buffer) Append(chunk string) {
	if chunk == "" {
		b.b.WriteString(ParagraphBreak)
		return
	}
	b.b.WriteString(chunk)
}

// String returns the accumulated markdown.
func (b *Buffer) String() string {
	return b.b.String()
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.b.Reset()
}

// View receives page snapshots. Update is called with the handler's lock
// held, in publication order; it must not call back into the Handler.
type View interface {
	Update(Page)
}

// ViewFunc adapts a function to the View interface.
type ViewFunc func(Page)

// Update implements View.
func (f ViewFunc) Update(p Page) { f(p) }

type discardView struct{}

func (discardView) Update(Page) {}
