package events

import (
	"encoding/json"
	"sync"
)

// Hub is an in-process pub/sub for outbound render events, keyed by session
// ID. Subscribers are websocket writers; a slow subscriber loses its oldest
// queued message rather than blocking the session worker.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given session.
func (h *Hub) Subscribe(sessionID string, buffer int) chan []byte {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan []byte, buffer)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan []byte]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (h *Hub) Unsubscribe(sessionID string, ch chan []byte) {
	h.mu.Lock()
	delete(h.subs[sessionID], ch)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
	h.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session. When a
// subscriber's buffer is full the oldest queued message is dropped; render
// events are state replacements, so only the latest per target matters and
// the sink retains that for replay.
func (h *Hub) Publish(sessionID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- data:
		default:
			select {
			case <-ch: // drop oldest
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
	h.mu.RUnlock()
}
