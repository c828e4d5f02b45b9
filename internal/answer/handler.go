// Package answer implements the query submission controller: it streams an
// answer for a query, re-renders it after every chunk, and lists the
// sources once the answer is complete.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/markdown"
	"github.com/starford/vectorfox/internal/upstream"
)

// DefaultStatusDelay is the pause between showing the search indicator
// and handing over to the generation indicator.
const DefaultStatusDelay = 200 * time.Millisecond

// Backend opens answer streams and lists sources.
type Backend interface {
	OpenStream(ctx context.Context, query string) (*upstream.Stream, error)
	Sources(ctx context.Context, query string) ([]string, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithStatusDelay sets the indicator pacing delay.
func WithStatusDelay(d time.Duration) Option {
	return func(h *Handler) {
		if d >= 0 {
			h.delay = d
		}
	}
}

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// Handler owns the page state of one view. At most one submission is
// live at a time; starting a new one closes the previous stream.
type Handler struct {
	backend  Backend
	renderer markdown.Renderer
	view     View
	delay    time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	page    Page
	buf     Buffer
	seq     uint64
	current *submission
	closed  bool
}

type submission struct {
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer
	paced  bool
}

func (s *submission) stop() {
	s.cancel()
	if s.timer != nil {
		s.timer.Stop()
	}
}

// NewHandler returns a handler publishing to view. A nil view discards
// updates.
func NewHandler(backend Backend, renderer markdown.Renderer, view View, opts ...Option) *Handler {
	if view == nil {
		view = discardView{}
	}
	h := &Handler{
		backend:  backend,
		renderer: renderer,
		view:     view,
		delay:    DefaultStatusDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Page returns a snapshot of the current page.
func (h *Handler) Page() Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page.clone()
}

// SetStatusDelay changes the pacing delay of later submissions. A
// negative delay is ignored.
func (h *Handler) SetStatusDelay(d time.Duration) {
	if d < 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delay = d
}

// Submit runs one submission for query and blocks until the sources have
// been published or the submission fails. A failed submission leaves the
// page as it was at the point of failure.
func (h *Handler) Submit(ctx context.Context, query string) error {
	sub, ctx, err := h.begin(ctx, query)
	if err != nil {
		return err
	}
	defer sub.cancel()

	stream, err := h.backend.OpenStream(ctx, query)
	if err != nil {
		return h.fail(sub, "open stream", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return h.fail(sub, "read stream", err)
		}
		if !h.appendChunk(sub, chunk) {
			return h.fail(sub, "read stream", nil)
		}
	}

	if !h.complete(sub) {
		return h.fail(sub, "complete", nil)
	}

	urls, err := h.backend.Sources(ctx, query)
	if err != nil {
		return h.fail(sub, "fetch sources", err)
	}
	if !h.setSources(sub, urls) {
		return h.fail(sub, "fetch sources", nil)
	}

	h.logger.Debug("answer: submission complete",
		slog.Uint64("seq", sub.seq),
		slog.String("query", query),
		slog.Int("sources", len(urls)))
	return nil
}

// Close stops the live submission, if any. Later submissions fail with
// apperr.ErrHandlerClosed.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.current != nil {
		h.current.stop()
		h.current = nil
	}
}

func (h *Handler) begin(parent context.Context, query string) (*submission, context.Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, fmt.Errorf("answer: submit: %w", apperr.ErrHandlerClosed)
	}
	if prev := h.current; prev != nil {
		prev.stop()
		h.logger.Debug("answer: superseding submission", slog.Uint64("seq", prev.seq))
	}

	ctx, cancel := context.WithCancel(parent)
	h.seq++
	sub := &submission{seq: h.seq, cancel: cancel}
	h.current = sub

	h.buf.Reset()
	h.page = Page{Query: query, Search: Shown, Generation: Hidden}
	h.publishLocked()

	sub.timer = time.AfterFunc(h.delay, func() { h.pace(sub) })
	return sub, ctx, nil
}

// fail maps err for a submission that did not finish. A submission that
// is no longer live reports why it was stopped instead of err.
func (h *Handler) fail(sub *submission, op string, err error) error {
	h.mu.Lock()
	live := h.current == sub
	closed := h.closed
	h.mu.Unlock()

	switch {
	case closed && !live:
		return fmt.Errorf("answer: %s: %w", op, apperr.ErrHandlerClosed)
	case !live:
		return fmt.Errorf("answer: %s: %w", op, apperr.ErrSuperseded)
	case err == nil:
		return fmt.Errorf("answer: %s: %w", op, apperr.ErrSuperseded)
	case errors.Is(err, context.Canceled):
		h.logger.Debug("answer: submission cancelled", slog.String("op", op))
	default:
		h.logger.Error("answer: submission failed",
			slog.String("op", op),
			slog.Uint64("seq", sub.seq),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("answer: %s: %w", op, err)
}

// pace hands over from the search indicator to the generation indicator.
func (h *Handler) pace(sub *submission) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != sub || sub.paced {
		return
	}
	h.paceLocked(sub)
	h.publishLocked()
}

func (h *Handler) paceLocked(sub *submission) {
	sub.paced = true
	h.page.Search = Done
	if h.page.Generation == Hidden {
		h.page.Generation = Shown
	}
}

func (h *Handler) appendChunk(sub *submission, chunk string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != sub {
		return false
	}

	h.page.ResponseVisible = true
	h.buf.Append(chunk)
	h.page.Markdown = h.buf.String()

	out, err := h.renderer.Render(h.page.Markdown)
	if err != nil {
		h.logger.Warn("answer: render failed, keeping previous output",
			slog.String("error", err.Error()))
	} else {
		h.page.Output = out
	}
	h.publishLocked()
	return true
}

func (h *Handler) complete(sub *submission) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != sub {
		return false
	}

	if !sub.paced {
		sub.timer.Stop()
		h.paceLocked(sub)
	}
	h.page.Generation = Done
	h.page.ResponseVisible = true
	h.page.SourcesVisible = true
	h.publishLocked()
	return true
}

func (h *Handler) setSources(sub *submission, urls []string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != sub {
		return false
	}
	// An empty list is still a delivered list.
	h.page.Sources = slices.Clone(urls)
	if h.page.Sources == nil {
		h.page.Sources = []string{}
	}
	h.publishLocked()
	return true
}

func (h *Handler) publishLocked() {
	h.view.Update(h.page.clone())
}
