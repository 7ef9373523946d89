package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/IdiegeA21/chat-app/internal/core/contracts"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
)

// Registry owns the live connections and the per-room broadcast groups.
type Registry struct {
	log     *slog.Logger
	mu      sync.RWMutex
	clients map[string]contracts.Client            // conn_id -> client
	rooms   map[int64]map[string]contracts.Client // room_id -> conn_id -> client
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:     log,
		clients: make(map[string]contracts.Client),
		rooms:   make(map[int64]map[string]contracts.Client),
	}
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Unregister forgets the connection and drops it from every room.
func (h *Registry) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for roomID, group := range h.rooms {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Subscribe is ignored for connections that are not registered.
func (h *Registry) Subscribe(connID string, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	group := h.rooms[roomID]
	if group == nil {
		group = make(map[string]contracts.Client)
		h.rooms[roomID] = group
	}
	group[connID] = c
}

func (h *Registry) Unsubscribe(connID string, roomID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	delete(group, connID)
	if len(group) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Registry) EmitTo(ctx context.Context, connID, event string, payload any) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, err := encode(event, payload)
	if err != nil {
		h.log.ErrorContext(ctx, "registry - emit - encode failed", "event", event, "err", err)
		return
	}
	h.send(ctx, c, event, data)
}

// EmitToRoom delivers to the subscribers present at call time. The frame is
// encoded once for the whole group.
func (h *Registry) EmitToRoom(ctx context.Context, roomID int64, event string, payload any, exclude string) {
	h.mu.RLock()
	targets := make([]contracts.Client, 0, len(h.rooms[roomID]))
	for connID, c := range h.rooms[roomID] {
		if connID == exclude {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}
	data, err := encode(event, payload)
	if err != nil {
		h.log.ErrorContext(ctx, "registry - broadcast - encode failed", "event", event, "room_id", roomID, "err", err)
		return
	}
	for _, c := range targets {
		h.send(ctx, c, event, data)
	}
}

func (h *Registry) Close(connID string) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c != nil {
		c.Close()
	}
}

// Stats reports live connections and rooms with at least one subscriber.
func (h *Registry) Stats() (connections, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients), len(h.rooms)
}

func (h *Registry) send(ctx context.Context, c contracts.Client, event string, data []byte) {
	if err := c.Send(ctx, data); err != nil {
		h.log.WarnContext(ctx, "registry - send - frame dropped", "conn_id", c.ID(), "event", event, "err", err)
	}
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(domain.OutboundEnvelope{Event: event, Data: payload})
}
