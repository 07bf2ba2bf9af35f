package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"snak8s/logging"
	"snak8s/logging/network"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	DefaultSendBuffer = 64
)

// Client owns one websocket connection. Every write goes through the send
// channel and the write pump, so rooms never block on a slow socket.
type Client struct {
	id   string
	conn *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	joining atomic.Bool
	dropped atomic.Uint64

	publisher logging.Publisher
}

func newClient(id string, conn *websocket.Conn, buffer int, publisher logging.Publisher) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		publisher: publisher,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. It returns false when the client is
// closed, mid-join, or its buffer is full.
func (c *Client) Send(frame []byte) bool {
	if c.joining.Load() {
		return false
	}
	return c.enqueue(frame)
}

// Dropped reports how many frames were discarded because the buffer was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
	}

	dropped := c.dropped.Add(1)
	if dropped&(dropped-1) == 0 {
		network.OutboundDropped(context.Background(), c.publisher, c.id, network.OutboundDroppedPayload{Dropped: dropped})
	}
	return false
}

// beginJoin holds back room frames until the joined acknowledgement has been
// queued, so the client always sees joined before the first gameState.
func (c *Client) beginJoin() {
	c.joining.Store(true)
}

func (c *Client) finishJoin(ack []byte) {
	if ack != nil {
		c.enqueue(ack)
	}
	c.joining.Store(false)
}

// close asks the write pump to send a close frame and drop the connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
