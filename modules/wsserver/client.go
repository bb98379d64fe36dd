package wsserver

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// wsConn is the part of *websocket.Conn the writer needs.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is the outbound side of one websocket connection. Frames are queued
// by the fan-out engine and written by a single writer goroutine.
type Client struct {
	conn wsConn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(conn wsConn, queueSize int) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// Deliver queues frame for writing. A client whose queue is full is closed, so
// it never observes a gap in its room's order and then carries on.
func (c *Client) Deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.closeLocked()
		return false
	}
}

// Close stops accepting frames. Queued frames are still written.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Done is closed once the writer has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// writePump writes queued frames until the queue is closed or a write fails,
// then closes the underlying connection.
func (c *Client) writePump(logger types.Logger) {
	defer close(c.done)
	defer func() {
		_ = c.conn.Close()
	}()

	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Debug("WebSocket write failed", "error", err)
			c.Close()
			return
		}
	}
}
