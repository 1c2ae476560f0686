// Package status fans status events out to the overlay, the log and any
// connected websocket clients.
package status

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
)

// DefaultSubscriberBuffer is the channel depth given to subscribers that do
// not ask for one.
const DefaultSubscriberBuffer = 64

// Hub is an asynchronous StatusSink. Publish never blocks the caller: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan domain.StatusEvent
	nextID  int
	closed  bool
	dropped int
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan domain.StatusEvent),
		logger: logger,
	}
}

// Publish delivers ev to every subscriber that has room for it.
func (h *Hub) Publish(ev domain.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.Debug("status subscriber lagging, event dropped",
				zap.Int("subscriber", id),
				zap.String("kind", string(ev.Kind)))
		}
	}
}

// Subscribe registers a new receiver. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan domain.StatusEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan domain.StatusEvent, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Close closes every subscriber channel. Later publishes are discarded.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	if h.dropped > 0 {
		h.logger.Info("status hub closed", zap.Int("dropped_events", h.dropped))
	}
	return nil
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

var _ domain.StatusSink = (*Hub)(nil)
