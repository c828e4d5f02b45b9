// Package printer writes a submission to a line-oriented stream: status
// lines as the indicators appear, the answer text as it grows, then the
// source list.
package printer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/markdown"
)

const (
	searchLine     = "Searching documentation..."
	generationLine = "Generating answer..."
)

// Printer is an answer.View for non-interactive output. Its Output field
// is expected to grow by appending, as with markdown.Plain.
type Printer struct {
	w      io.Writer
	status lipgloss.Style
	title  lipgloss.Style

	query           string
	searchShown     bool
	generationShown bool
	written         int
	sourcesPrinted  bool
}

// New returns a printer writing to w. Styling is applied only when w is a
// terminal that supports it.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		status: r.NewStyle().Faint(true),
		title:  r.NewStyle().Bold(true),
	}
}

// Update implements answer.View.
func (p *Printer) Update(page answer.Page) {
	if page.Query != p.query || len(page.Output) < p.written {
		p.reset(page.Query)
	}

	if page.Search.Visible() && !p.searchShown {
		p.searchShown = true
		fmt.Fprintln(p.w, p.status.Render(searchLine))
	}
	if page.Generation.Visible() && !p.generationShown {
		p.generationShown = true
		fmt.Fprintln(p.w, p.status.Render(generationLine))
		fmt.Fprintln(p.w)
	}

	if len(page.Output) > p.written {
		io.WriteString(p.w, page.Output[p.written:])
		p.written = len(page.Output)
	}

	if page.Sources != nil && !p.sourcesPrinted {
		p.sourcesPrinted = true
		p.printSources(page.Sources)
	}
}

func (p *Printer) printSources(urls []string) {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(p.title.Render("Sources:"))
	b.WriteString("\n")
	for _, u := range urls {
		b.WriteString("- ")
		b.WriteString(u)
		b.WriteString("\n")
	}
	io.WriteString(p.w, b.String())
}

func (p *Printer) reset(query string) {
	p.query = query
	p.searchShown = false
	p.generationShown = false
	p.written = 0
	p.sourcesPrinted = false
}

// Ask runs one submission for query against backend and prints it to w.
func Ask(ctx context.Context, backend answer.Backend, w io.Writer, query string, opts ...answer.Option) error {
	h := answer.NewHandler(backend, markdown.Plain{}, New(w), opts...)
	defer h.Close()
	return h.Submit(ctx, query)
}
