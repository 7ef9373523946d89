package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrBufferFull   = errors.New("client send buffer full")
)

const sendBuffer = 256

// RuntimeClient is one live connection as seen by the registry. Frames are
// queued on a buffered channel and written by a single goroutine.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	id     string
	out    chan []byte
	once   sync.Once
	done   chan struct{}
	log    *slog.Logger
}

func NewClient(parent context.Context, ws *WebSocket, id string, log *slog.Logger) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		id:     id,
		out:    make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    log.With("conn_id", id),
	}
	go c.writeLoop(pingPeriod)
	return c
}

func (c *RuntimeClient) ID() string { return c.id }

// Send queues a frame without blocking. A full buffer drops the frame.
func (c *RuntimeClient) Send(_ context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrClientClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops the client after flushing frames already queued.
func (c *RuntimeClient) Close() {
	c.once.Do(c.cancel)
}

// Done is closed once the write loop has exited and the socket is closed.
func (c *RuntimeClient) Done() <-chan struct{} {
	return c.done
}

func (c *RuntimeClient) writeLoop(keepalive time.Duration) {
	ticker := time.NewTicker(keepalive)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.done)
	}()
	for {
		select {
		case <-c.ctx.Done():
			c.flush()
			c.ws.WriteClose()
			return
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				c.log.Debug("ws client - write - failed", "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WritePing(); err != nil {
				c.log.Debug("ws client - ping - failed", "err", err)
				c.Close()
				return
			}
		}
	}
}

func (c *RuntimeClient) flush() {
	for {
		select {
		case data := <-c.out:
			if err := c.ws.WriteMessage(data); err != nil {
				return
			}
		default:
			return
		}
	}
}
