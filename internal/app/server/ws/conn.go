package ws

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WebSocket wraps a gorilla connection with deadlines and keepalive. Only the
// client's write loop writes data frames.
type WebSocket struct {
	*websocket.Conn
	log  *slog.Logger
	once sync.Once
}

func NewWebSocket(conn *websocket.Conn, log *slog.Logger) *WebSocket {
	return &WebSocket{Conn: conn, log: log}
}

func (w *WebSocket) WriteMessage(data []byte) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) WritePing() error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.Conn.WriteMessage(websocket.PingMessage, nil)
}

// WriteClose sends a normal closure frame. Errors are ignored since the peer
// may already be gone.
func (w *WebSocket) WriteClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// ReadLoop hands every non-empty text frame to onMsg, one at a time, in
// arrival order. It returns when the peer goes away or the connection closes.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()

	w.Conn.SetReadLimit(maxMessageSize)
	_ = w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	w.Conn.SetPongHandler(func(string) error {
		return w.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			w.logReadError(err)
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		w.log.Warn("ws conn - read - frame too large", "limit", maxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), errors.Is(err, websocket.ErrCloseSent):
		w.log.Debug("ws conn - read - closed", "err", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		w.log.Warn("ws conn - read - unexpected close", "err", err)
	default:
		w.log.Debug("ws conn - read - stopped", "err", err)
	}
}

func (w *WebSocket) Close() {
	w.once.Do(func() {
		_ = w.Conn.Close()
	})
}
