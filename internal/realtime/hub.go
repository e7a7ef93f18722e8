package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"comanda/backend/internal/notify"
)

// Frame is the wire shape for every socket message, inbound and outbound.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// peerSendBuffer is how many frames a connection may fall behind before it
// starts losing them.
const peerSendBuffer = 16

var (
	errPeerClosed = errors.New("peer closed")
	errPeerBusy   = errors.New("peer send buffer full")
)

// peer decouples broadcasts from socket writes: frames are queued on a
// buffered channel and drained by a single writer goroutine, so a stalled
// connection loses its own frames instead of blocking the broadcaster.
type peer struct {
	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(enc *json.Encoder) *peer {
	p := &peer{
		frames: make(chan Frame, peerSendBuffer),
		done:   make(chan struct{}),
	}
	go p.writeLoop(enc)
	return p
}

func (p *peer) writeLoop(enc *json.Encoder) {
	for {
		select {
		case <-p.done:
			return
		case f := <-p.frames:
			if err := enc.Encode(f); err != nil {
				p.close()
				return
			}
		}
	}
}

// send queues a frame without ever blocking. Frames for a closed peer or a
// full buffer are dropped.
func (p *peer) send(f Frame) error {
	select {
	case <-p.done:
		return errPeerClosed
	case p.frames <- f:
		return nil
	default:
		return errPeerBusy
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Hub tracks room membership and fans events out to subscribers. Delivery is
// fire-and-forget: a failed write never blocks or fails the broadcast.
type Hub struct {
	mu    sync.Mutex
	rooms map[notify.Room]map[*peer]struct{}
	log   *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{rooms: make(map[notify.Room]map[*peer]struct{}), log: log}
}

func (h *Hub) join(room notify.Room, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.rooms[room]
	if !ok {
		subscribers = make(map[*peer]struct{})
		h.rooms[room] = subscribers
	}
	subscribers[p] = struct{}{}
}

func (h *Hub) leave(room notify.Room, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subscribers, ok := h.rooms[room]; ok {
		delete(subscribers, p)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}
}

// leaveAll removes the peer from every room; called on disconnect.
func (h *Hub) leaveAll(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, subscribers := range h.rooms {
		delete(subscribers, p)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}
}

// ConnectionCount reports how many connections are in room.
func (h *Hub) ConnectionCount(room notify.Room) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Broadcast sends an event to every connection in room.
func (h *Hub) Broadcast(room notify.Room, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("realtime: marshal broadcast payload", "event", event, "error", err)
		return
	}
	frame := Frame{Event: event, Payload: body}

	h.mu.Lock()
	subscribers := make([]*peer, 0, len(h.rooms[room]))
	for p := range h.rooms[room] {
		subscribers = append(subscribers, p)
	}
	h.mu.Unlock()

	for _, p := range subscribers {
		if err := p.send(frame); err != nil {
			h.log.Debug("realtime: dropped frame", "room", string(room), "event", event, "error", err)
		}
	}
}
