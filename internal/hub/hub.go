package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is an in-process publish/subscribe broker fanning out
// state-change notifications to connected live-update listeners.
// Delivery is best-effort: a subscriber whose queue is full misses
// that message, and publishing never blocks the caller.
//
// Fan-out is local to this process. Horizontally scaled deployments
// get per-instance streams only; that is a known limitation, not
// something this type tries to hide.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	buffer      int
}

// New creates a Hub whose subscriber queues hold up to buffer pending
// messages each.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 100
	}
	return &Hub{
		subscribers: make(map[chan []byte]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a new bounded queue and returns it. The caller
// owns the registration and must Unsubscribe when the consumer
// disconnects, on every disconnect path.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe deregisters a queue returned by Subscribe.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
}

// SubscriberCount returns the number of registered queues.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish serializes v once and attempts non-blocking delivery to
// every registered queue. Full queues drop the message for that
// subscriber only.
func (h *Hub) Publish(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("hub: failed to marshal update: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			// Slow consumer; drop rather than stall the publisher.
		}
	}
}
