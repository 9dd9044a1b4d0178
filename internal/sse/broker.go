// Package sse implements a Server-Sent Events broker that pushes archive
// changes to connected clients.
//
// Every event carries a sequence id. A reconnecting client that sends
// Last-Event-ID receives the events it missed, as far as the broker's
// history reaches.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeDocumentCreated = "document.created"
	TypeDocumentUpdated = "document.updated"
	TypeDocumentDeleted = "document.deleted"
	TypeTagsUpdated     = "tags.updated"
)

const (
	// DefaultHeartbeat is how often idle streams receive a comment line.
	DefaultHeartbeat = 30 * time.Second
	// HistorySize is the number of events kept for replay.
	HistorySize = 128

	clientBuffer = 64
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
}

type documentEvent struct {
	kind string
	path string
}

// Broker fans events out to subscribers.
//
// The loop goroutine owns the subscriber set, the history ring and the
// tags throttle. Everything else reaches it through channels.
type Broker struct {
	tagsMin   time.Duration
	heartbeat time.Duration

	subs    chan subscription
	unsubs  chan chan []byte
	events  chan Event
	docs    chan documentEvent
	counts  chan chan int
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits tags.updated at most once per
// tagsThrottle.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}
	b := &Broker{
		tagsMin:   tagsThrottle,
		heartbeat: DefaultHeartbeat,
		subs:      make(chan subscription),
		unsubs:    make(chan chan []byte),
		events:    make(chan Event, 256),
		docs:      make(chan documentEvent, 256),
		counts:    make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// loopState is owned by the loop goroutine.
type loopState struct {
	clients  map[chan []byte]struct{}
	history  []frame
	next     uint64
	lastTags time.Time
}

func (s *loopState) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	s.next++
	f := frame{
		id:  s.next,
		raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", s.next, ev.Type, payload),
	}
	if len(s.history) == HistorySize {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, f)

	for ch := range s.clients {
		select {
		case ch <- f.raw:
		default:
			// Slow client; it can catch up via Last-Event-ID.
		}
	}
}

// replay queues the frames after id without blocking.
func (s *loopState) replay(ch chan []byte, after uint64) {
	if after == 0 {
		return
	}
	for _, f := range s.history {
		if f.id <= after {
			continue
		}
		select {
		case ch <- f.raw:
		default:
			return
		}
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)

	st := &loopState{clients: make(map[chan []byte]struct{})}

	for {
		select {
		case <-b.stopCh:
			for ch := range st.clients {
				close(ch)
			}
			return

		case sub := <-b.subs:
			st.clients[sub.ch] = struct{}{}
			st.replay(sub.ch, sub.after)

		case ch := <-b.unsubs:
			if _, ok := st.clients[ch]; ok {
				delete(st.clients, ch)
				close(ch)
			}

		case ev := <-b.events:
			st.broadcast(ev)

		case d := <-b.docs:
			typ, ok := documentType(d.kind)
			if !ok {
				continue
			}
			st.broadcast(Event{Type: typ, Data: map[string]string{"path": d.path}})

			// Any document change may add or drop a tag.
			if now := time.Now(); now.Sub(st.lastTags) >= b.tagsMin {
				st.lastTags = now
				st.broadcast(Event{Type: TypeTagsUpdated, Data: map[string]string{}})
			}

		case resp := <-b.counts:
			resp <- len(st.clients)
		}
	}
}

func documentType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeDocumentCreated, true
	case "updated":
		return TypeDocumentUpdated, true
	case "deleted":
		return TypeDocumentDeleted, true
	}
	return "", false
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client that receives events from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a client and first replays the retained events whose
// id is greater than after.
func (b *Broker) SubscribeAfter(after uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subs <- subscription{ch: ch, after: after}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubs <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishDocumentEvent publishes a document change ("created", "updated" or
// "deleted") followed by a throttled tags.updated event. Its signature
// matches index.EventCallback.
func (b *Broker) PublishDocumentEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.docs <- documentEvent{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(b.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
		}
		flusher.Flush()
	}
}
