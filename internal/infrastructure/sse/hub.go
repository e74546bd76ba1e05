// Package sse streams engine activity to connected clients, one event feed
// per organization. Slow clients drop messages instead of blocking a cycle.
package sse

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Message is one server-sent event.
type Message struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

const clientBuffer = 16

type client struct {
	org string
	ch  chan Message
}

// Hub fans engine events out to subscribed clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// Subscribe registers a client for one org's feed. The caller must drain the
// channel and call Unsubscribe when done.
func (h *Hub) Subscribe(org string) (uuid.UUID, <-chan Message) {
	c := &client{org: org, ch: make(chan Message, clientBuffer)}
	id := uuid.New()
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return id, c.ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.ch)
		delete(h.clients, id)
	}
}

// Publish delivers a message to every subscriber of an org. Full client
// buffers are skipped.
func (h *Hub) Publish(org string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.org != org {
			continue
		}
		select {
		case c.ch <- msg:
		default:
		}
	}
}

// ClientCount reports the number of connected clients across all orgs.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.ch)
		delete(h.clients, id)
	}
}

// Sender adapts one org's feed to the notification boundary. It reacts only
// to the "sse" channel name.
type Sender struct {
	Hub *Hub
	Org string
}

// Send publishes the snapshot and briefing as separate events.
func (s *Sender) Send(_ context.Context, channels []string, snapshot, briefing string) error {
	for _, ch := range channels {
		if ch != "sse" {
			continue
		}
		s.Hub.Publish(s.Org, Message{Event: "snapshot", Data: snapshot})
		s.Hub.Publish(s.Org, Message{Event: "briefing", Data: briefing})
		return nil
	}
	return nil
}
