package server

import (
	"encoding/json"
	"sync"

	"github.com/lawnchairsociety/gridquest/internal/logger"
)

// Hub tracks live clients and session rooms and implements
// session.Broadcaster. Payloads are encoded before a call returns so the
// caller may keep mutating its state.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[int]map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[int]map[string]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// unregister forgets c and removes it from every room.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	for code, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections in a session room.
func (h *Hub) RoomSize(code int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

func (h *Hub) Join(code int, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]struct{})
	}
	h.rooms[code][connID] = struct{}{}
}

func (h *Hub) Leave(code int, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

func (h *Hub) CloseRoom(code int) {
	h.mu.Lock()
	delete(h.rooms, code)
	h.mu.Unlock()
}

func (h *Hub) ToRoom(code int, event string, payload any) {
	frame, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[code] {
		if c, ok := h.clients[id]; ok {
			c.enqueue(frame)
		}
	}
}

func (h *Hub) ToClient(connID string, event string, payload any) {
	frame, ok := encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	c, found := h.clients[connID]
	h.mu.RUnlock()
	if found {
		c.enqueue(frame)
	}
}

// closeAll drops every client.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close(nil)
	}
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, payload any) ([]byte, bool) {
	frame, err := json.Marshal(outbound{Event: event, Data: payload})
	if err != nil {
		logger.Error("Failed to encode event", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}
