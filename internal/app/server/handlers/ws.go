package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/IdiegeA21/chat-app/internal/app/server/ws"
	"github.com/IdiegeA21/chat-app/internal/core/contracts"
	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/IdiegeA21/chat-app/pkg/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventHandler is the room engine as seen by the socket layer.
type EventHandler interface {
	HandleEvent(ctx context.Context, connID string, raw []byte) error
	Authenticate(ctx context.Context, connID, token string) error
	Disconnect(ctx context.Context, connID string) error
}

// ClientRegistry tracks live connections.
type ClientRegistry interface {
	Register(c contracts.Client)
	Unregister(connID string)
}

type WSHandler struct {
	hub      ClientRegistry
	engine   EventHandler
	upgrader websocket.Upgrader
}

// NewWSHandler accepts upgrades from the given origins. An empty list allows
// any origin.
func NewWSHandler(hub ClientRegistry, engine EventHandler, origins ...string) *WSHandler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &WSHandler{
		hub:    hub,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		return
	}
	connID := uuid.NewString()
	span.SetAttributes(attribute.String("chat.conn_id", connID))

	// The session outlives the upgrade request.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	ctx, log = logging.With(ctx, logging.Conn(connID))

	socket := ws.NewWebSocket(conn, log)
	client := ws.NewClient(ctx, socket, connID, log)
	s.hub.Register(client)
	log.InfoContext(ctx, "ws handler - register - connection registered")
	defer func() {
		client.Close()
		s.hub.Unregister(connID)
		if err := s.engine.Disconnect(ctx, connID); err != nil {
			log.WarnContext(ctx, "ws handler - disconnect - cleanup incomplete", logging.Err(err))
		}
		log.InfoContext(ctx, "ws handler - disconnect - connection closed")
	}()

	if token := r.URL.Query().Get("token"); token != "" {
		if err := s.engine.Authenticate(ctx, connID, token); err != nil {
			log.InfoContext(ctx, "ws handler - handshake auth - rejected", logging.Err(err))
			<-client.Done()
			return
		}
	}

	socket.ReadLoop(func(data []byte) {
		if err := s.engine.HandleEvent(ctx, connID, data); err != nil {
			logEventError(ctx, log, err)
		}
	})
}

// logEventError keeps client mistakes at debug and real failures at warn.
func logEventError(ctx context.Context, log *slog.Logger, err error) {
	if errors.Is(err, domain.ErrPersistenceUnavailable) {
		log.WarnContext(ctx, "ws handler - handle event - failed", logging.Err(err))
		return
	}
	log.DebugContext(ctx, "ws handler - handle event - rejected", logging.Err(err))
}
