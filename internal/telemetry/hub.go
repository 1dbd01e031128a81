package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultQueueSize is the per-subscriber notification buffer.
const DefaultQueueSize = 256

// Subscription is a consumer's view of the hub. Channels are closed on
// Unsubscribe or Close.
type Subscription struct {
	ID       string
	Updates  <-chan ParsedUpdate
	Statuses <-chan Status
}

type subscriber struct {
	updates  chan ParsedUpdate
	statuses chan Status
}

// Hub hands forwarded updates from the reader goroutine to consumers. Every
// subscriber has its own FIFO queue; publishing never blocks, and a full
// queue drops the new notification.
type Hub struct {
	queueSize int

	mu          sync.Mutex
	subscribers map[string]*subscriber
	closed      bool

	overflow atomic.Uint64
}

// NewHub creates a hub with the given per-subscriber queue size.
func NewHub(queueSize int) *Hub {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize:   queueSize,
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a new consumer. Subscribing to a closed hub returns
// already-closed channels so readers do not block.
func (h *Hub) Subscribe() Subscription {
	id := uuid.NewString()
	sub := &subscriber{
		updates:  make(chan ParsedUpdate, h.queueSize),
		statuses: make(chan Status, h.queueSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.updates)
		close(sub.statuses)
	} else {
		h.subscribers[id] = sub
	}
	return Subscription{ID: id, Updates: sub.updates, Statuses: sub.statuses}
}

// Unsubscribe removes a consumer and closes its channels.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.updates)
		close(sub.statuses)
		delete(h.subscribers, id)
	}
}

// Publish delivers an update to every subscriber without blocking.
func (h *Hub) Publish(u ParsedUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		select {
		case sub.updates <- u:
		default:
			h.overflow.Add(1)
		}
	}
}

// PublishStatus delivers a status message to every subscriber without
// blocking.
func (h *Hub) PublishStatus(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		select {
		case sub.statuses <- s:
		default:
			h.overflow.Add(1)
		}
	}
}

// Overflow returns how many notifications were dropped on full queues.
func (h *Hub) Overflow() uint64 {
	return h.overflow.Load()
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		close(sub.updates)
		close(sub.statuses)
		delete(h.subscribers, id)
	}
}
