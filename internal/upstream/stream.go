package upstream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/sse"
)

// DoneSentinel is the data of the event that terminates an answer stream.
const DoneSentinel = "[DONE]"

// Stream is a lazy, finite sequence of answer chunks.
type Stream struct {
	body   io.ReadCloser
	parser *sse.Parser

	closeOnce sync.Once
	finished  bool
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, parser: sse.NewParser(body)}
}

// Next returns the next chunk. It returns io.EOF after the [DONE]
// sentinel, at which point the connection is already closed. Events with a
// type other than "message" are skipped. If the body ends without the
// sentinel the error wraps apperr.ErrStreamInterrupted.
func (s *Stream) Next() (string, error) {
	if s.finished {
		return "", io.EOF
	}
	for {
		msg, err := s.parser.Next()
		if errors.Is(err, io.EOF) {
			s.finished = true
			s.Close()
			return "", fmt.Errorf("upstream: %w", apperr.ErrStreamInterrupted)
		}
		if err != nil {
			s.finished = true
			s.Close()
			return "", fmt.Errorf("upstream: read stream: %w", err)
		}
		if msg.Type != sse.DefaultEventType {
			continue
		}
		if msg.Data == DoneSentinel {
			s.finished = true
			s.Close()
			return "", io.EOF
		}
		return msg.Data, nil
	}
}

// All ranges over the remaining chunks. Iteration stops after the sentinel
// or at the first error, which is yielded with an empty chunk. Breaking out
// early closes the stream.
func (s *Stream) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				s.Close()
				return
			}
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
