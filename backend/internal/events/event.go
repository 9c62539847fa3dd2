package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"community-service/backend/internal/entity"
)

// InteractionEvent is published when a user likes a post or follows someone.
// EventID doubles as the notification id, so a redelivered message cannot create a
// second notification.
type InteractionEvent struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"` // entity.NotificationPostLiked / entity.NotificationUserFollowed
	ActorID     uint64    `json:"actorId"`
	RecipientID uint64    `json:"recipientId"`
	PostID      uint64    `json:"postId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewPostLiked(actorID, authorID, postID uint64, at time.Time) InteractionEvent {
	return InteractionEvent{
		EventID:     uuid.NewString(),
		EventType:   entity.NotificationPostLiked,
		ActorID:     actorID,
		RecipientID: authorID,
		PostID:      postID,
		OccurredAt:  at,
	}
}

func NewUserFollowed(followerID, followeeID uint64, at time.Time) InteractionEvent {
	return InteractionEvent{
		EventID:     uuid.NewString(),
		EventType:   entity.NotificationUserFollowed,
		ActorID:     followerID,
		RecipientID: followeeID,
		OccurredAt:  at,
	}
}

// partitionKey keeps one recipient's events ordered on a single partition.
func (e InteractionEvent) partitionKey() string {
	return strconv.FormatUint(e.RecipientID, 10)
}

// Notification converts the event into the row shown to its recipient.
func (e InteractionEvent) Notification() entity.Notification {
	n := entity.Notification{
		ID:          e.EventID,
		RecipientID: e.RecipientID,
		ActorID:     e.ActorID,
		Type:        e.EventType,
		CreatedAt:   e.OccurredAt,
	}
	if e.PostID != 0 {
		postID := e.PostID
		n.PostID = &postID
	}
	return n
}
