package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a real-time event pushed to every connected client of one
// household.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string, data any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Data:   data,
	}
}

// Hub tracks connected clients grouped by household.
type Hub struct {
	mu         sync.RWMutex
	households map[string]map[*Client]struct{}
	logger     *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		households: make(map[string]map[*Client]struct{}),
		logger:     logger,
	}
}

// Register adds a client to its household's group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	group, ok := h.households[c.householdID]
	if !ok {
		group = make(map[*Client]struct{})
		h.households[c.householdID] = group
	}
	group[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if group, ok := h.households[c.householdID]; ok {
		if _, ok := group[c]; ok {
			delete(group, c)
			close(c.send)
		}
		if len(group) == 0 {
			delete(h.households, c.householdID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client of one household.
func (h *Hub) Broadcast(householdID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.households[householdID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message", "household_id", householdID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all households.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, group := range h.households {
		n += len(group)
	}
	return n
}

// HouseholdClientCount returns the number of clients connected for one household.
func (h *Hub) HouseholdClientCount(householdID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.households[householdID])
}
