// Package sse implements a Server-Sent Events broker for index and note
// change notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/linkdex/internal/models"
	"github.com/starford/linkdex/internal/urlindex"
)

// Event types.
const (
	TypeIndexUpdated = "index.updated"
	TypeNoteCreated  = "note.created"
	TypeNoteUpdated  = "note.updated"
	TypeNoteDeleted  = "note.deleted"
	TypeNoteRenamed  = "note.renamed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns mutable state (clients and the
// index.updated throttle). Public methods talk to it over channels.
//
// index.updated is throttled with a trailing edge: a burst of index
// changes yields one event immediately and at most one more when the
// throttle interval expires.
type Broker struct {
	indexMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	indexCh       chan struct{}
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

var _ urlindex.ChangeHandler = (*Broker)(nil)

// NewBroker creates a new SSE broker with the given index.updated throttle.
func NewBroker(indexThrottle time.Duration) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}

	b := &Broker{
		indexMin:      indexThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		indexCh:       make(chan struct{}, 1),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastIndex time.Time
	var trailing *time.Timer
	var trailingCh <-chan time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	indexUpdated := func(now time.Time) {
		lastIndex = now
		broadcast(Event{Type: TypeIndexUpdated, Data: map[string]string{}})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case <-b.indexCh:
			now := time.Now()
			if now.Sub(lastIndex) >= b.indexMin {
				indexUpdated(now)
				continue
			}
			if trailingCh == nil {
				trailing = time.NewTimer(b.indexMin - now.Sub(lastIndex))
				trailingCh = trailing.C
			}

		case now := <-trailingCh:
			trailing, trailingCh = nil, nil
			indexUpdated(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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
	case b.unsubscribeCh <- ch:
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
	case b.countReqCh <- resp:
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
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change as note.<kind>.
func (b *Broker) PublishNoteEvent(ev models.NoteEvent) {
	b.Publish(Event{Type: "note." + ev.Kind, Data: ev})
}

// IndexUpdated requests a throttled index.updated event. It never blocks,
// so it is safe to register directly as an index listener.
func (b *Broker) IndexUpdated() {
	if b.closed.Load() {
		return
	}
	select {
	case b.indexCh <- struct{}{}:
	default:
		// A request is already queued.
	}
}

// OnCreated implements urlindex.ChangeHandler.
func (b *Broker) OnCreated(doc urlindex.Document) {
	b.PublishNoteEvent(models.NoteEvent{Kind: "created", Path: doc.Path()})
}

// OnChanged implements urlindex.ChangeHandler.
func (b *Broker) OnChanged(doc urlindex.Document) {
	b.PublishNoteEvent(models.NoteEvent{Kind: "updated", Path: doc.Path()})
}

// OnDeleted implements urlindex.ChangeHandler.
func (b *Broker) OnDeleted(doc urlindex.Document) {
	b.PublishNoteEvent(models.NoteEvent{Kind: "deleted", Path: doc.Path()})
}

// OnRenamed implements urlindex.ChangeHandler.
func (b *Broker) OnRenamed(doc urlindex.Document, oldPath string) {
	b.PublishNoteEvent(models.NoteEvent{Kind: "renamed", Path: doc.Path(), OldPath: oldPath})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
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
