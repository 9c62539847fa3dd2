package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 32
)

type Conn struct {
	ws     *websocket.Conn
	hub    *Hub
	userID uint64
	send   chan ServerMessage
	log    *zap.Logger
}

func newConn(ws *websocket.Conn, hub *Hub, userID uint64, log *zap.Logger) *Conn {
	return &Conn{ws: ws, hub: hub, userID: userID, send: make(chan ServerMessage, sendBuffer), log: log}
}

// enqueue drops the message when the client is not keeping up.
func (c *Conn) enqueue(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		c.log.Debug("send queue full, dropping message", zap.Uint64("userId", c.userID), zap.String("type", msg.Type))
	}
}

// readLoop blocks until the socket fails or closes, then unregisters the
// connection and stops the writer.
func (c *Conn) readLoop() {
	defer func() {
		c.hub.Leave(c.userID, c)
		close(c.send)
	}()
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read error", zap.Uint64("userId", c.userID), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		switch msg.Type {
		case TypeHeartbeat:
			c.enqueue(ServerMessage{Type: TypeFeedback, Content: "heartbeat received"})
		default:
			c.enqueue(ServerMessage{Type: TypeIgnored, Content: "unknown message type"})
		}
	}
}

func (c *Conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			c.log.Debug("websocket write error", zap.Uint64("userId", c.userID), zap.Error(err))
			// keep draining so enqueue never blocks on a dead socket
			continue
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
