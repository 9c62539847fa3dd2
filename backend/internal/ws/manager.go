package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"community-service/backend/internal/auth"
)

// UnreadCounter supplies the unread badge sent in the welcome message.
type UnreadCounter interface {
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
}

var defaultOrigins = []string{
	"http://localhost",
	"http://127.0.0.1",
	"https://localhost",
	"https://127.0.0.1",
}

type Manager struct {
	hub      *Hub
	unread   UnreadCounter
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewManager accepts upgrades from the given origin prefixes, or from local
// development origins when none are configured.
func NewManager(hub *Hub, unread UnreadCounter, allowedOrigins []string, log *zap.Logger) *Manager {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}
	m := &Manager{hub: hub, unread: unread, log: log.Named("ws")}
	m.upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// some clients send no Origin, or "null"
		if origin == "" || origin == "null" {
			return true
		}
		for _, p := range allowedOrigins {
			if p == "*" || strings.HasPrefix(origin, p) {
				return true
			}
		}
		return false
	}}
	return m
}

// Connect upgrades an authenticated request and serves it until the socket closes.
func (m *Manager) Connect(c *gin.Context) {
	caller, ok := auth.CallerFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"code":    "UNAUTHENTICATED",
			"error":   "login required",
		})
		return
	}

	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.log.Warn("websocket upgrade failed", zap.Error(err), zap.String("origin", c.Request.Header.Get("Origin")))
		return
	}
	defer conn.Close()

	wsConn := newConn(conn, m.hub, caller.UserID, m.log)
	welcome := ServerMessage{Type: TypeWelcome, UserID: caller.UserID}
	if m.unread != nil {
		if n, err := m.unread.CountUnread(c.Request.Context(), caller.UserID); err == nil {
			welcome.UnreadCount = &n
		} else {
			m.log.Warn("count unread for welcome", zap.Uint64("userId", caller.UserID), zap.Error(err))
		}
	}
	// queue the welcome before joining so it is always the first frame
	wsConn.enqueue(welcome)
	m.hub.Join(caller.UserID, wsConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		wsConn.writeLoop()
	}()
	wsConn.readLoop()
	<-done
}
