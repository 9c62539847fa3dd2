package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

// Notifier pushes a freshly stored notification to the recipient's live connections.
type Notifier interface {
	Notify(userID uint64, n entity.Notification)
}

// NotificationConsumer turns interaction events into notification rows.
// It implements sarama.ConsumerGroupHandler.
type NotificationConsumer struct {
	notifications repo.NotificationRepo
	notifier      Notifier
	log           *zap.Logger
}

var _ sarama.ConsumerGroupHandler = (*NotificationConsumer)(nil)

func NewNotificationConsumer(notifications repo.NotificationRepo, notifier Notifier, log *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{notifications: notifications, notifier: notifier, log: log.Named("consumer")}
}

func (c *NotificationConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *NotificationConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *NotificationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg.Value); err != nil {
				// the offset stays unmarked and the message is redelivered after a rebalance
				c.log.Error("handle interaction event",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// HandleMessage stores the notification for one event. Malformed payloads and
// self-interactions are skipped without error.
func (c *NotificationConsumer) HandleMessage(ctx context.Context, payload []byte) error {
	var evt InteractionEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		c.log.Warn("skip malformed event", zap.Error(err))
		return nil
	}
	if evt.EventID == "" || evt.RecipientID == 0 || evt.RecipientID == evt.ActorID {
		return nil
	}
	switch evt.EventType {
	case entity.NotificationPostLiked, entity.NotificationUserFollowed:
	default:
		c.log.Debug("skip unknown event type", zap.String("type", evt.EventType))
		return nil
	}

	n := evt.Notification()
	created, err := c.notifications.CreateNotification(ctx, &n)
	if err != nil {
		return fmt.Errorf("create notification %s: %w", n.ID, err)
	}
	// a redelivered event was pushed the first time
	if created && c.notifier != nil {
		c.notifier.Notify(n.RecipientID, n)
	}
	return nil
}

// Run consumes topics until ctx is cancelled or the group is closed.
func (c *NotificationConsumer) Run(ctx context.Context, group sarama.ConsumerGroup, topics []string) error {
	for {
		// Consume returns at every rebalance and has to be called again
		if err := group.Consume(ctx, topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("consumer group error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
