package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/vectorfox/internal/sse"
)

// NewRouter creates a chi router with the console routes. A non-empty
// token is required on every route.
func NewRouter(console *Console, broker *sse.Broker, token string) chi.Router {
	h := NewHandler(console, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(token))

	r.Get("/", h.Index)
	r.Get("/events", h.Events)
	r.Post("/submit", h.Submit)

	return r
}
