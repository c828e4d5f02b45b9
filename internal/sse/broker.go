// Package sse implements the event-stream wire format: a Parser for
// consuming streams and a Broker for serving them to browser sessions.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is an event published through the Broker. Data is JSON-encoded.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type publishReq struct {
	topic string
	event Event
}

type subscription struct {
	topic string
	ch    chan []byte
}

type countReq struct {
	topic string
	resp  chan int
}

var keepaliveFrame = []byte(": keepalive\n\n")

// Broker fans events out to subscribers grouped by topic.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber set. Public methods talk to the loop through channels, so no
// mutexes are required.
type Broker struct {
	keepalive time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan publishReq
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that writes a keepalive comment to every
// subscriber each interval. A non-positive interval defaults to 15s.
func NewBroker(keepalive time.Duration) *Broker {
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}

	b := &Broker{
		keepalive:     keepalive,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	ticker := time.NewTicker(b.keepalive)
	defer ticker.Stop()

	// send never blocks the loop. A full buffer loses its oldest frame so
	// the latest state always reaches a slow subscriber. The loop is the
	// only sender, so the second attempt cannot fail.
	send := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- raw:
		default:
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.topic

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.publishCh:
			raw, err := encode(req.event)
			if err != nil {
				continue
			}
			for ch, topic := range clients {
				if topic == req.topic {
					send(ch, raw)
				}
			}

		case <-ticker.C:
			for ch := range clients {
				// Pending frames keep the connection alive on their own.
				if len(ch) == 0 {
					send(ch, keepaliveFrame)
				}
			}

		case req := <-b.countReqCh:
			n := 0
			for _, topic := range clients {
				if req.topic == "" || topic == req.topic {
					n++
				}
			}
			req.resp <- n
		}
	}
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

// Close gracefully stops the broker loop and closes all subscriber channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a subscriber for topic and returns its channel.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{topic: topic, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of subscribers of topic, or of all
// topics when topic is empty.
func (b *Broker) ClientCount(topic string) int {
	if b.closed.Load() {
		return 0
	}

	req := countReq{topic: topic, resp: make(chan int, 1)}
	select {
	case b.countReqCh <- req:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-req.resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every subscriber of topic.
func (b *Broker) Publish(topic string, event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- publishReq{topic: topic, event: event}:
	case <-b.stopped:
	}
}

// ServeTopic streams the events of topic to w until the request context is
// done or the broker closes.
func (b *Broker) ServeTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(topic)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
