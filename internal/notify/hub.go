// Package notify carries the "state changed" signal from the reservation
// engine to connected viewers. Delivery is best-effort: a slow or dead
// subscriber never blocks a mutation or another subscriber.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Subscriber is one open event-stream connection. Events arrive on C;
// the hub drops events for subscribers whose buffer is full.
type Subscriber struct {
	ID string
	C  chan string
}

type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscriber)}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: uuid.NewString(),
		C:  make(chan string, 8),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber from the set. The channel is left
// open: a broadcast may hold a snapshot that still references it, and a
// send on a closed channel would panic.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
}

// Broadcast delivers the event name to a snapshot of the current
// subscriber set, so subscribers joining or leaving mid-broadcast are
// safe.
func (h *Hub) Broadcast(event string) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	for _, sub := range snapshot {
		select {
		case sub.C <- event:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
