// Package sse streams node and forest changes to clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/rank"
)

// Event types.
const (
	TypeForestUpdated = "forest.updated"
	typeNodePrefix    = "node."
)

// Event is one message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NodeData is the payload of node.* events.
type NodeData struct {
	ID       uuid.UUID       `json:"id"`
	ParentID *uuid.UUID      `json:"parent_id,omitempty"`
	Rank     rank.Key        `json:"rank_key"`
	Type     models.NodeType `json:"node_type"`
	ETag     string          `json:"etag"`
}

type changeReq struct {
	kind string
	node *models.Node
}

// Broker fans events out to subscribers.
//
// A single goroutine owns the client set and the forest throttle timestamp;
// public methods talk to it over channels.
type Broker struct {
	forestMin time.Duration
	seq       atomic.Uint64

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits forest.updated at most once per
// forestThrottle.
func NewBroker(forestThrottle time.Duration) *Broker {
	if forestThrottle <= 0 {
		forestThrottle = 2 * time.Second
	}

	b := &Broker{
		forestMin:     forestThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
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
	var lastForest time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", b.seq.Add(1), event.Type, payload)
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
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

		case req := <-b.changeCh:
			if n := req.node; n != nil {
				broadcast(Event{Type: typeNodePrefix + req.kind, Data: NodeData{
					ID:       n.ID,
					ParentID: n.ParentID,
					Rank:     n.Rank,
					Type:     n.Type,
					ETag:     n.ETag(),
				}})
			}

			now := time.Now()
			if now.Sub(lastForest) >= b.forestMin {
				lastForest = now
				broadcast(Event{Type: TypeForestUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client.
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

// PublishNodeEvent broadcasts node.<kind> for n followed by a throttled
// forest.updated. Its signature matches nodeservice.EventCallback.
func (b *Broker) PublishNodeEvent(kind string, n models.Node) {
	b.change(changeReq{kind: kind, node: &n})
}

// PublishForestChanged emits a throttled forest.updated on its own, for
// changes made outside this process.
func (b *Broker) PublishForestChanged() {
	b.change(changeReq{})
}

func (b *Broker) change(req changeReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP streams events until the client disconnects (GET /api/events).
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
