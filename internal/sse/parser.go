package sse

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// DefaultEventType is the type of an event without an "event:" field.
const DefaultEventType = "message"

// Message is one event decoded from an event stream.
type Message struct {
	Type  string
	Data  string
	ID    string
	Retry int // -1 when the event carried no valid retry field
}

// Parser decodes an event stream read from an io.Reader.
//
// Lines may end in LF, CRLF or a lone CR. Lines starting with ':' are
// comments. A blank line dispatches the pending event if it has at least
// one data field; "data:" with an empty value counts as a data field.
type Parser struct {
	r    *bufio.Reader
	done bool

	typ     string
	data    []string
	hasData bool
	id      string
	retry   int
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReaderSize(r, 4096), retry: -1}
}

// Next returns the next event. It returns io.EOF once the stream is
// exhausted. An event not terminated by a blank line before EOF is
// incomplete and discarded.
func (p *Parser) Next() (Message, error) {
	if p.done {
		return Message{}, io.EOF
	}
	for {
		line, err := p.readLine()
		if errors.Is(err, io.EOF) {
			p.done = true
			p.typ, p.data, p.hasData, p.id, p.retry = "", nil, false, "", -1
			return Message{}, io.EOF
		}
		if err != nil {
			return Message{}, err
		}

		if line == "" {
			if p.hasData {
				return p.dispatch(), nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}
		p.field(splitField(line))
	}
}

func splitField(line string) (string, string) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return name, strings.TrimPrefix(value, " ")
}

func (p *Parser) field(name, value string) {
	switch name {
	case "event":
		p.typ = value
	case "data":
		p.data = append(p.data, value)
		p.hasData = true
	case "id":
		p.id = value
	case "retry":
		if n, err := strconv.Atoi(value); err == nil {
			p.retry = n
		}
	}
}

func (p *Parser) dispatch() Message {
	msg := Message{
		Type:  p.typ,
		Data:  strings.Join(p.data, "\n"),
		ID:    p.id,
		Retry: p.retry,
	}
	if msg.Type == "" {
		msg.Type = DefaultEventType
	}
	p.typ, p.data, p.hasData, p.id, p.retry = "", nil, false, "", -1
	return msg
}

// readLine returns one line without its terminator. io.EOF is only
// returned when no bytes remain.
func (p *Parser) readLine() (string, error) {
	var b strings.Builder
	for {
		c, err := p.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		switch c {
		case '\n':
			return b.String(), nil
		case '\r':
			if next, err := p.r.ReadByte(); err == nil && next != '\n' {
				_ = p.r.UnreadByte()
			}
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
}
