package notify

import (
	"sync"
	"time"
)

// HistoryCapacity bounds the retained notifications. Reconnecting admin
// dashboards get at most this many recent events; it is not a delivery log.
const HistoryCapacity = 6

// History is a fixed-capacity most-recent-first notification buffer. It is
// in-memory and process-lifetime scoped; construct one instance and share it.
type History struct {
	mu      sync.Mutex
	entries []Notification
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{entries: make([]Notification, 0, HistoryCapacity)}
}

// Append inserts at the front, assigning the timestamp if unset, and drops
// the oldest entry beyond capacity.
func (h *History) Append(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]Notification{n}, h.entries...)
	if len(h.entries) > HistoryCapacity {
		h.entries = h.entries[:HistoryCapacity]
	}
}

// Recent returns up to limit notifications, most recent first. A limit of
// zero or less means everything retained.
func (h *History) Recent(limit int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	out := make([]Notification, limit)
	copy(out, h.entries[:limit])
	return out
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}

// Len reports the retained count.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
