package presence

import (
	"sync"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 16

// Socket is the transport surface a Conn needs from a websocket connection.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Conn is one live channel between a client and the server. A user may hold
// several of them at once (one per device or tab).
type Conn struct {
	ID     string
	UserID int64

	sock      Socket
	Send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func NewConn(id string, userID int64, sock Socket) *Conn {
	return &Conn{
		ID:     id,
		UserID: userID,
		sock:   sock,
		Send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Push queues data for delivery on this connection. It never blocks: a closed
// connection or a full buffer drops the frame, which from the caller's point
// of view is the same as the recipient having gone offline.
func (c *Conn) Push(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close shuts the underlying socket down and releases the write pump. Safe to
// call from any goroutine, any number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.sock.Close()
	})
}

// ReadPump consumes inbound frames until the socket fails or is closed.
// Clients do not send application frames on this channel (messages travel
// over the HTTP API), so payloads are discarded; the loop exists to detect
// disconnects. The caller is expected to unregister once ReadPump returns.
func (c *Conn) ReadPump() {
	defer c.Close()
	for {
		if _, _, err := c.sock.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump drains the send buffer onto the socket. A failed write closes the
// connection, which in turn makes ReadPump return on the same connection.
func (c *Conn) WritePump() {
	for {
		select {
		case data := <-c.Send:
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
