package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/markdown"
	"github.com/starford/vectorfox/internal/upstream"
)

type recorder struct {
	mu    sync.Mutex
	pages []Page
}

func (r *recorder) Update(p Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, p)
}

func (r *recorder) snapshot() []Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Page(nil), r.pages...)
}

func (r *recorder) last() Page {
	pages := r.snapshot()
	if len(pages) == 0 {
		return Page{}
	}
	return pages[len(pages)-1]
}

func writeEvents(w http.ResponseWriter, chunks ...string) {
	for _, c := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", c)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

type service struct {
	srv         *httptest.Server
	sourcesHits atomic.Int32
}

// newService starts a fake answer service. stream handles /stream; /sources
// answers with sources as a JSON array.
func newService(t *testing.T, stream http.HandlerFunc, sources string) *service {
	t.Helper()
	s := &service{}
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		stream(w, r)
	})
	mux.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		s.sourcesHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sources)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func chunks(cs ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEvents(w, cs...)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(s *service, view View, opts ...Option) *Handler {
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	return NewHandler(upstream.NewClient(s.srv.URL), markdown.NewHTML(), view, opts...)
}

func TestSubmit_RendersAccumulatedMarkdown(t *testing.T) {
	s := newService(t, chunks("Hello", " ", "world", "[DONE]"), `["https://a.example/1","https://b.example/2"]`)
	rec := &recorder{}
	h := newTestHandler(s, rec)

	if err := h.Submit(context.Background(), "greeting"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want, _ := markdown.NewHTML().Render("Hello world")
	page := h.Page()
	if page.Markdown != "Hello world" {
		t.Errorf("markdown = %q", page.Markdown)
	}
	if page.Output != want {
		t.Errorf("output = %q, want %q", page.Output, want)
	}
	if len(page.Sources) != 2 || page.Sources[0] != "https://a.example/1" || page.Sources[1] != "https://b.example/2" {
		t.Errorf("sources = %q", page.Sources)
	}
	if page.Search != Done || page.Generation != Done {
		t.Errorf("indicators = %v/%v, want done/done", page.Search, page.Generation)
	}
	if !page.ResponseVisible || !page.SourcesVisible {
		t.Errorf("containers not revealed: %+v", page)
	}
	if got := s.sourcesHits.Load(); got != 1 {
		t.Errorf("sources fetched %d times, want 1", got)
	}
}

func TestSubmit_EmptyChunkIsParagraphBreak(t *testing.T) {
	s := newService(t, chunks("first", "", "second", "[DONE]"), `[]`)
	h := newTestHandler(s, nil)

	if err := h.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := h.Page().Markdown; got != "first\n\nsecond" {
		t.Errorf("markdown = %q", got)
	}
}

func TestSubmit_FirstPublishedPageIsReset(t *testing.T) {
	s := newService(t, chunks("text", "[DONE]"), `["https://a.example"]`)
	rec := &recorder{}
	h := newTestHandler(s, rec)

	for i := 0; i < 2; i++ {
		before := len(rec.snapshot())
		if err := h.Submit(context.Background(), "q"); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		first := rec.snapshot()[before]
		if first.Output != "" || first.Markdown != "" || len(first.Sources) != 0 {
			t.Errorf("submission %d: first page not empty: %+v", i, first)
		}
		if first.Search != Shown || first.Generation != Hidden {
			t.Errorf("submission %d: indicators = %v/%v", i, first.Search, first.Generation)
		}
		if first.ResponseVisible || first.SourcesVisible {
			t.Errorf("submission %d: containers visible on reset", i)
		}
	}
}

func TestSubmit_ResponseRevealedOnFirstChunk(t *testing.T) {
	s := newService(t, chunks("a", "b", "[DONE]"), `[]`)
	rec := &recorder{}
	h := newTestHandler(s, rec, WithStatusDelay(time.Hour))

	if err := h.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	for _, p := range rec.snapshot() {
		if p.Markdown == "" && p.ResponseVisible {
			t.Errorf("response visible before content: %+v", p)
		}
		if p.Markdown != "" && !p.ResponseVisible {
			t.Errorf("response hidden with content: %+v", p)
		}
	}
}

func TestSubmit_GenerationNeverBeforeSearchDone(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		writeEvents(w, "one")
		time.Sleep(40 * time.Millisecond)
		writeEvents(w, "two", "[DONE]")
	}
	for name, tc := range map[string]struct {
		stream http.HandlerFunc
		delay  time.Duration
	}{
		"timer fires mid-stream":  {slow, 10 * time.Millisecond},
		"done before timer fires": {chunks("x", "[DONE]"), time.Hour},
		"zero delay":              {chunks("x", "[DONE]"), 0},
	} {
		s := newService(t, tc.stream, `[]`)
		rec := &recorder{}
		h := newTestHandler(s, rec, WithStatusDelay(tc.delay))
		if err := h.Submit(context.Background(), "q"); err != nil {
			t.Fatalf("%s: Submit: %v", name, err)
		}
		for i, p := range rec.snapshot() {
			if p.Generation.Visible() && p.Search != Done {
				t.Errorf("%s: page %d shows generation %v with search %v", name, i, p.Generation, p.Search)
			}
		}
		if last := rec.last(); last.Search != Done || last.Generation != Done {
			t.Errorf("%s: final indicators = %v/%v", name, last.Search, last.Generation)
		}
	}
}

func TestSubmit_SourcesPublishedAfterDone(t *testing.T) {
	s := newService(t, chunks("a", "[DONE]"), `["https://x.example"]`)
	rec := &recorder{}
	h := newTestHandler(s, rec)

	if err := h.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	for _, p := range rec.snapshot() {
		if len(p.Sources) > 0 && p.Generation != Done {
			t.Errorf("sources shown before completion: %+v", p)
		}
	}
	if got := s.sourcesHits.Load(); got != 1 {
		t.Errorf("sources fetched %d times, want 1", got)
	}
}

func TestSubmit_EmptySourcesIsEmptyList(t *testing.T) {
	s := newService(t, chunks("a", "[DONE]"), `[]`)
	rec := &recorder{}
	h := newTestHandler(s, rec)

	if err := h.Submit(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	for _, page := range []Page{h.Page(), rec.last()} {
		if page.Sources == nil || len(page.Sources) != 0 {
			t.Errorf("sources = %#v, want an empty non-nil list", page.Sources)
		}
	}
}

func TestSetStatusDelay_AppliesToNextSubmission(t *testing.T) {
	release := make(chan struct{})
	stream := func(w http.ResponseWriter, r *http.Request) {
		writeEvents(w, "partial")
		select {
		case <-release:
		case <-r.Context().Done():
		}
		writeEvents(w, "[DONE]")
	}
	s := newService(t, stream, `[]`)
	rec := &recorder{}
	h := newTestHandler(s, rec, WithStatusDelay(time.Hour))
	h.SetStatusDelay(0)
	h.SetStatusDelay(-time.Second)

	errc := make(chan error, 1)
	go func() { errc <- h.Submit(context.Background(), "q") }()

	deadline := time.Now().Add(2 * time.Second)
	for h.Page().Generation != Shown {
		if time.Now().After(deadline) {
			close(release)
			t.Fatalf("generation not shown mid-stream, page = %+v", h.Page())
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSubmit_SupersedeClosesPreviousStream(t *testing.T) {
	firstClosed := make(chan struct{})
	stream := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "first" {
			writeEvents(w, "partial")
			<-r.Context().Done()
			close(firstClosed)
			return
		}
		writeEvents(w, "second answer", "[DONE]")
	}
	s := newService(t, stream, `[]`)
	rec := &recorder{}
	h := newTestHandler(s, rec)

	firstErr := make(chan error, 1)
	go func() { firstErr <- h.Submit(context.Background(), "first") }()

	deadline := time.Now().Add(2 * time.Second)
	for h.Page().Markdown != "partial" {
		if time.Now().After(deadline) {
			t.Fatal("first submission never received its chunk")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.Submit(context.Background(), "second"); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	select {
	case err := <-firstErr:
		if !errors.Is(err, apperr.ErrSuperseded) {
			t.Errorf("first Submit err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first Submit did not return")
	}
	select {
	case <-firstClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("first stream was left open")
	}

	page := h.Page()
	if page.Query != "second" || page.Markdown != "second answer" {
		t.Errorf("final page = %+v", page)
	}
	if got := s.sourcesHits.Load(); got != 1 {
		t.Errorf("sources fetched %d times, want 1 (second only)", got)
	}
}

func TestSubmit_StreamErrorLeavesPage(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}, `[]`)
	rec := &recorder{}
	h := newTestHandler(s, rec, WithStatusDelay(time.Hour))

	err := h.Submit(context.Background(), "q")
	if !errors.Is(err, apperr.ErrUnexpectedStatus) {
		t.Fatalf("err = %v, want ErrUnexpectedStatus", err)
	}
	page := h.Page()
	if page.Search != Shown || page.Generation != Hidden || page.Output != "" {
		t.Errorf("page after failure = %+v", page)
	}
	if s.sourcesHits.Load() != 0 {
		t.Error("sources fetched after failed stream")
	}
}

func TestSubmit_InterruptedStream(t *testing.T) {
	s := newService(t, chunks("half"), `[]`)
	h := newTestHandler(s, nil)

	err := h.Submit(context.Background(), "q")
	if !errors.Is(err, apperr.ErrStreamInterrupted) {
		t.Fatalf("err = %v, want ErrStreamInterrupted", err)
	}
	if page := h.Page(); page.Generation == Done || page.Markdown != "half" {
		t.Errorf("page = %+v", page)
	}
}

func TestSubmit_MalformedSources(t *testing.T) {
	s := newService(t, chunks("a", "[DONE]"), `not json`)
	h := newTestHandler(s, nil)

	err := h.Submit(context.Background(), "q")
	if !errors.Is(err, apperr.ErrMalformedSources) {
		t.Fatalf("err = %v, want ErrMalformedSources", err)
	}
	if page := h.Page(); page.Generation != Done || len(page.Sources) != 0 {
		t.Errorf("page = %+v", page)
	}
}

func TestClose(t *testing.T) {
	s := newService(t, func(w http.ResponseWriter, r *http.Request) {
		writeEvents(w, "waiting")
		<-r.Context().Done()
	}, `[]`)
	h := newTestHandler(s, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- h.Submit(context.Background(), "q") }()

	deadline := time.Now().Add(2 * time.Second)
	for h.Page().Markdown == "" {
		if time.Now().After(deadline) {
			t.Fatal("no chunk received")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, apperr.ErrHandlerClosed) {
			t.Errorf("err = %v, want ErrHandlerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return after Close")
	}
	if err := h.Submit(context.Background(), "again"); !errors.Is(err, apperr.ErrHandlerClosed) {
		t.Errorf("Submit after Close = %v", err)
	}
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Append("a")
	b.Append("")
	b.Append("b")
	if b.String() != "a\n\nb" {
		t.Errorf("buffer = %q", b.String())
	}
	b.Reset()
	if b.String() != "" {
		t.Errorf("reset buffer = %q", b.String())
	}
}

func TestIndicatorText(t *testing.T) {
	for ind, want := range map[Indicator]string{Hidden: "hidden", Shown: "shown", Done: "done"} {
		got, _ := ind.MarshalText()
		if string(got) != want {
			t.Errorf("%d: %q, want %q", ind, got, want)
		}
	}
}
