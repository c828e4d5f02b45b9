// Package tui is the interactive terminal front end: a query input above
// the status lines, the rendered answer and its sources.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/vectorfox/internal/answer"
)

const (
	searchLabel     = "Searching documentation"
	generationLabel = "Generating answer"

	// rows used by the title, input box, status lines and help
	chromeHeight = 8
)

// Model is the bubbletea model of the interactive front end.
type Model struct {
	ctx     context.Context
	handler *answer.Handler

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	page  answer.Page
	width int
}

// NewModel returns a model submitting through handler. Submissions run
// under ctx.
func NewModel(ctx context.Context, handler *answer.Handler) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the documentation..."
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = PendingStyle

	return Model{
		ctx:      ctx,
		handler:  handler,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
}

// Page returns the last page the model received.
func (m Model) Page() answer.Page {
	return m.page
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.viewport.SetContent(m.body())
		return m, nil

	case PageMsg:
		m.page = answer.Page(msg)
		m.viewport.SetContent(m.body())
		if m.page.Generation != answer.Done {
			m.viewport.GotoBottom()
		}
		return m, nil

	case SubmitDoneMsg:
		// Failures are logged by the handler; the page stays as it was.
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		// The query goes out as typed, blank included.
		return m, m.submit(m.input.Value())
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the submission off the event loop. Starting another one
// supersedes it.
func (m Model) submit(query string) tea.Cmd {
	h, ctx := m.handler, m.ctx
	return func() tea.Msg {
		return SubmitDoneMsg{Query: query, Err: h.Submit(ctx, query)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("vectorfox"))
	b.WriteString("\n")
	b.WriteString(InputStyle.Render(m.input.View()))
	b.WriteString("\n")

	for _, line := range []string{
		m.statusLine(m.page.Search, searchLabel),
		m.statusLine(m.page.Generation, generationLabel),
	} {
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if m.page.ResponseVisible || m.page.SourcesVisible {
		b.WriteString("\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("enter: ask  pgup/pgdn: scroll  esc: quit"))
	return b.String()
}

func (m Model) statusLine(ind answer.Indicator, label string) string {
	switch ind {
	case answer.Shown:
		return m.spinner.View() + " " + PendingStyle.Render(label+"...")
	case answer.Done:
		return DoneStyle.Render("✓ " + label)
	default:
		return ""
	}
}

func (m Model) body() string {
	var b strings.Builder
	if m.page.ResponseVisible {
		b.WriteString(m.page.Output)
	}
	if m.page.SourcesVisible {
		b.WriteString("\n")
		b.WriteString(SectionStyle.Render("Sources"))
		for _, u := range m.page.Sources {
			b.WriteString("\n• ")
			b.WriteString(LinkStyle.Render(u))
		}
	}
	return b.String()
}
