package ws

import (
	"sync"

	"community-service/backend/internal/entity"
)

// Hub tracks the live sockets of each user. One user may hold several
// connections (tabs, devices), so pushes go to every connection.
type Hub struct {
	mu    sync.RWMutex
	users map[uint64]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{users: make(map[uint64]map[*Conn]struct{})}
}

func (h *Hub) Join(userID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Conn]struct{})
	}
	h.users[userID][c] = struct{}{}
}

func (h *Hub) Leave(userID uint64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}

// Notify pushes n to every connection of userID. The read lock is held while
// enqueueing, so a connection cannot close its send queue mid-push.
func (h *Hub) Notify(userID uint64, n entity.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := ServerMessage{Type: TypeNotification, UserID: userID, Notification: &n}
	for c := range h.users[userID] {
		c.enqueue(msg)
	}
}

// Online returns how many connections userID has open.
func (h *Hub) Online(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
