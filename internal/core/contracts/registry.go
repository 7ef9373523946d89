package contracts

import (
	"context"
)

// Transport is the broadcast layer the engine emits through. It owns the
// live connections; the engine only refers to them by id.
type Transport interface {
	// EmitTo delivers one event to a single connection.
	EmitTo(ctx context.Context, connID string, event string, payload any)
	// EmitToRoom delivers an event to every connection subscribed to roomID,
	// skipping exclude when it is non-empty.
	EmitToRoom(ctx context.Context, roomID int64, event string, payload any, exclude string)
	// Subscribe wires a connection into a room's broadcast group.
	Subscribe(connID string, roomID int64)
	// Unsubscribe removes a connection from a room's broadcast group.
	Unsubscribe(connID string, roomID int64)
	// Close terminates the connection.
	Close(connID string)
}

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection.
type Client interface {
	ID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
