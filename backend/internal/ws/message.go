package ws

import "community-service/backend/internal/entity"

// Message types exchanged on the notification socket.
const (
	TypeWelcome      = "welcome"
	TypeNotification = "notification"
	TypeFeedback     = "feedback"
	TypeIgnored      = "ignored"
	TypeHeartbeat    = "heartbeat"
)

type ClientMessage struct {
	Type string `json:"type"`
}

type ServerMessage struct {
	Type         string               `json:"type"`
	UserID       uint64               `json:"userId,omitempty"`
	UnreadCount  *int64               `json:"unreadCount,omitempty"`
	Notification *entity.Notification `json:"notification,omitempty"`
	Content      string               `json:"content,omitempty"`
}
