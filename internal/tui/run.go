package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/markdown"
)

// Run starts the interactive program and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, backend answer.Backend, renderer markdown.Renderer, opts ...answer.Option) error {
	var program *tea.Program
	view := answer.ViewFunc(func(p answer.Page) {
		program.Send(PageMsg(p))
	})

	h := answer.NewHandler(backend, renderer, view, opts...)
	defer h.Close()

	program = tea.NewProgram(NewModel(ctx, h), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
