package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks every connected client and fans notifications out to all of
// them. It implements session.Publisher. Delivery order matches call order
// because the coordinator invokes it while holding its lock and each client
// drains its send buffer in FIFO order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a client. Clients are registered at upgrade time, before any
// join event, so pre-join connections already receive broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("conn_id", c.ID), zap.Int("total", total))
}

// Unregister removes a client. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("conn_id", c.ID), zap.Int("total", total))
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	msg, err := envelope(event, payload)
	if err != nil {
		h.logger.Error("marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(msg)
	}
}

// SendTo sends an event to a single connection. Unknown ids are ignored.
func (h *Hub) SendTo(connID string, event string, payload any) {
	msg, err := envelope(event, payload)
	if err != nil {
		h.logger.Error("marshal send", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.enqueue(msg)
	}
}

// Disconnect terminates a client's connection. Used for kicks; registry
// cleanup already happened, so the ensuing disconnect path is a no-op there.
func (h *Hub) Disconnect(connID string) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.close()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func envelope(event string, payload any) (WSMessage, error) {
	msg := WSMessage{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return msg, err
		}
		msg.Data = data
	}
	return msg, nil
}
