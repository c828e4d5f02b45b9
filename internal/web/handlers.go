package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/sse"
)

// Handler serves the console endpoints.
type Handler struct {
	console *Console
	broker  *sse.Broker
}

// NewHandler creates a console HTTP handler.
func NewHandler(console *Console, broker *sse.Broker) *Handler {
	return &Handler{console: console, broker: broker}
}

type indexData struct {
	Session string
	Token   string
}

// Index renders the search page with a fresh session id.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := indexData{
		Session: uuid.NewString(),
		Token:   r.URL.Query().Get("token"),
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		slog.Error("render console page failed", slog.String("error", err.Error()))
	}
}

// Events streams the page snapshots of one session. The session is closed
// once its last subscriber disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if err := sessionID(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'session' must be a UUID"))
		return
	}

	h.broker.ServeTopic(w, r, id)

	if h.broker.ClientCount(id) == 0 {
		h.console.Drop(id)
	}
}

// Submit starts a submission on the posted session.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid form body"))
		return
	}
	req := SubmitRequest{
		Session: r.PostFormValue("session"),
		Query:   r.PostFormValue("query"),
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := h.console.Submit(req.Session, req.Query); err != nil {
		if errors.Is(err, apperr.ErrHandlerClosed) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("console is shutting down"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{Session: req.Session, Status: "accepted"})
}
