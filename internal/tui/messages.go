package tui

import "github.com/starford/vectorfox/internal/answer"

// PageMsg carries a page snapshot from the handler into the program.
type PageMsg answer.Page

// SubmitDoneMsg is sent when a submission returns.
type SubmitDoneMsg struct {
	Query string
	Err   error
}
