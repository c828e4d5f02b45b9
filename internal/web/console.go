// Package web serves the browser console: a search page whose state is
// pushed to the tab over server-sent events.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/vectorfox/internal/answer"
	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/markdown"
	"github.com/starford/vectorfox/internal/sse"
	"github.com/starford/vectorfox/internal/upstream"
)

// PageEventType is the SSE event type carrying page snapshots.
const PageEventType = "page"

// Option configures a Console.
type Option func(*Console)

// WithLogger sets the console logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.logger = l }
}

// WithStatusDelay sets the indicator pacing delay of submissions.
func WithStatusDelay(d time.Duration) Option {
	return func(c *Console) { c.delay.Store(int64(d)) }
}

// WithRenderer replaces the HTML markdown renderer.
func WithRenderer(r markdown.Renderer) Option {
	return func(c *Console) { c.renderer = r }
}

// Console owns one answer.Handler per browser session and publishes each
// handler's pages to the session's topic on the broker.
type Console struct {
	broker   *sse.Broker
	backend  atomic.Pointer[backendHolder]
	delay    atomic.Int64
	renderer markdown.Renderer
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*answer.Handler
	closed   bool
}

type backendHolder struct {
	answer.Backend
}

// NewConsole returns a console answering from backend.
func NewConsole(backend answer.Backend, broker *sse.Broker, opts ...Option) *Console {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Console{
		broker:   broker,
		renderer: markdown.NewHTML(),
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*answer.Handler),
	}
	c.delay.Store(int64(answer.DefaultStatusDelay))
	c.backend.Store(&backendHolder{backend})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBackend switches the backend used by submissions started from now on.
func (c *Console) SetBackend(b answer.Backend) {
	c.backend.Store(&backendHolder{b})
}

// SetStatusDelay changes the pacing delay of submissions started from now
// on, in every session.
func (c *Console) SetStatusDelay(d time.Duration) {
	c.delay.Store(int64(d))
}

// OpenStream implements answer.Backend against the current backend.
func (c *Console) OpenStream(ctx context.Context, query string) (*upstream.Stream, error) {
	return c.backend.Load().OpenStream(ctx, query)
}

// Sources implements answer.Backend against the current backend.
func (c *Console) Sources(ctx context.Context, query string) ([]string, error) {
	return c.backend.Load().Sources(ctx, query)
}

// Session returns the handler of session id, creating it on first use.
func (c *Console) Session(id string) (*answer.Handler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("web: session %s: %w", id, apperr.ErrHandlerClosed)
	}
	if h, ok := c.sessions[id]; ok {
		return h, nil
	}

	view := answer.ViewFunc(func(p answer.Page) {
		c.broker.Publish(id, sse.Event{Type: PageEventType, Data: newPageEvent(p)})
	})
	h := answer.NewHandler(c, c.renderer, view,
		answer.WithStatusDelay(time.Duration(c.delay.Load())),
		answer.WithLogger(c.logger.With(slog.String("session", id))))
	c.sessions[id] = h
	c.logger.Debug("web: session opened", slog.String("session", id))
	return h, nil
}

// Submit starts a submission for query on session id and returns without
// waiting for it. A submission already running on the session is
// superseded.
func (c *Console) Submit(id, query string) error {
	h, err := c.Session(id)
	if err != nil {
		return err
	}
	h.SetStatusDelay(time.Duration(c.delay.Load()))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := h.Submit(c.ctx, query)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrSuperseded), errors.Is(err, apperr.ErrHandlerClosed):
			c.logger.Debug("web: submission stopped",
				slog.String("session", id), slog.String("reason", err.Error()))
		default:
			c.logger.Warn("web: submission failed",
				slog.String("session", id), slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Drop closes and forgets session id.
func (c *Console) Drop(id string) {
	c.mu.Lock()
	h, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()

	if ok {
		h.Close()
		c.logger.Debug("web: session closed", slog.String("session", id))
	}
}

// SessionCount returns the number of open sessions.
func (c *Console) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Close stops every session and waits for running submissions to return.
func (c *Console) Close() {
	c.mu.Lock()
	c.closed = true
	sessions := c.sessions
	c.sessions = make(map[string]*answer.Handler)
	c.mu.Unlock()

	c.cancel()
	for _, h := range sessions {
		h.Close()
	}
	c.wg.Wait()
}
