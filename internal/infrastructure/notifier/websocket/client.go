package websocketnotifier

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

type client struct {
	id      string
	tradeID string
	conn    *websocket.Conn
	send    chan []byte

	closeOnce *sync.Once
	done      chan struct{}
}

func newClient(id, tradeID string, conn *websocket.Conn) *client {
	return &client{
		id:        id,
		tradeID:   tradeID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		closeOnce: &sync.Once{},
		done:      make(chan struct{}),
	}
}

// accepts returns whether the client wants messages about the given trade.
// Messages not bound to any trade are delivered to everyone.
func (c *client) accepts(tradeID string) bool {
	return c.tradeID == "" || tradeID == "" || c.tradeID == tradeID
}

// enqueue never blocks. It returns false if the client buffer is full.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) writeLoop() {
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			//nolint
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debugf("ws client %s: write failed", c.id)
				return
			}
		}
	}
}

// readLoop consumes client messages until the connection drops, replying to
// pings with pongs and to anything else with an error message.
func (c *client) readLoop(onClose func()) {
	defer func() {
		c.close()
		onClose()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
			) {
				log.WithError(err).Debugf("ws client %s: connection dropped", c.id)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(buf, &msg); err != nil {
			c.enqueue(newMessage(
				MessageTypeError, ErrorData{"malformed message"},
			).serialize())
			continue
		}

		switch msg.MessageType {
		case MessageTypePing:
			c.enqueue(newMessage(MessageTypePong, nil).serialize())
		default:
			c.enqueue(newMessage(
				MessageTypeError,
				ErrorData{"unsupported message type " + msg.MessageType},
			).serialize())
		}
	}
}
