package web

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/markdown"
)

// SubmitRequest is the form posted to /submit.
type SubmitRequest struct {
	Session string
	Query   string
}

// Validate checks that the session is a UUID. The query may be empty.
func (r SubmitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Session, validation.Required, validation.By(sessionID)),
	)
}

func sessionID(value interface{}) error {
	s, _ := value.(string)
	_, err := uuid.Parse(s)
	return err
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Session string `json:"session"`
	Status  string `json:"status"`
}

// PageEvent is the payload of a "page" event on /events. Output holds the
// rendered answer HTML and SourcesHTML the rendered source list items.
type PageEvent struct {
	Query           string           `json:"query"`
	Search          answer.Indicator `json:"search"`
	Generation      answer.Indicator `json:"generation"`
	ResponseVisible bool             `json:"response_visible"`
	SourcesVisible  bool             `json:"sources_visible"`
	Output          string           `json:"output"`
	SourcesHTML     string           `json:"sources_html"`
}

func newPageEvent(p answer.Page) PageEvent {
	return PageEvent{
		Query:           p.Query,
		Search:          p.Search,
		Generation:      p.Generation,
		ResponseVisible: p.ResponseVisible,
		SourcesVisible:  p.SourcesVisible,
		Output:          p.Output,
		SourcesHTML:     markdown.SourcesHTML(p.Sources),
	}
}
