// Package ws adapts gorilla/websocket connections to the core's Conn
// contract: a buffered send queue drained by a write pump, so the room's
// fan-out never blocks on a slow peer.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Conn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, buffer int) *Conn {
	return &Conn{
		conn: ws,
		send: make(chan []byte, buffer),
	}
}

// TrySend enqueues a frame without blocking. A full queue means the peer is
// not draining; the caller treats that the same as a dead connection.
func (c *Conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
