package action

import (
	"context"

	"go.uber.org/zap"

	"community-service/backend/internal/events"
	"community-service/backend/internal/repo"
)

type ToggleResult struct {
	Active bool   `json:"active"`
	Count  uint64 `json:"count"`
}

// postCounters maps post edge kinds to their cached counter.
var postCounters = map[repo.EdgeKind]repo.CounterField{
	repo.EdgeLike:     repo.CounterLikes,
	repo.EdgeBookmark: repo.CounterBookmarks,
}

// ToggleLike flips the caller's like on a post. Count is the post's like count
// after the flip.
func (s *Service) ToggleLike(ctx context.Context, postID uint64) (ToggleResult, error) {
	return s.toggle(ctx, repo.EdgeLike, postID)
}

func (s *Service) ToggleBookmark(ctx context.Context, postID uint64) (ToggleResult, error) {
	return s.toggle(ctx, repo.EdgeBookmark, postID)
}

// ToggleFollow flips whether the caller follows userID. Count is the followee's
// follower count.
func (s *Service) ToggleFollow(ctx context.Context, userID uint64) (ToggleResult, error) {
	return s.toggle(ctx, repo.EdgeFollow, userID)
}

func (s *Service) toggle(ctx context.Context, kind repo.EdgeKind, targetID uint64) (ToggleResult, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return ToggleResult{}, err
	}
	if targetID == 0 {
		return ToggleResult{}, NewError(KindInvalidArgument, "invalid target id")
	}
	if kind == repo.EdgeFollow && targetID == me.UserID {
		return ToggleResult{}, NewError(KindInvalidArgument, "you cannot follow yourself")
	}

	out, err := s.Procedures.Toggle(ctx, kind, me.UserID, targetID)
	if err != nil {
		return ToggleResult{}, s.fail("toggle "+string(kind), err)
	}

	// a toggle that lost an insert race changed nothing and has nothing to report
	if !out.Changed {
		return ToggleResult{Active: out.Active, Count: out.Count}, nil
	}
	if field, ok := postCounters[kind]; ok {
		delta := int64(-1)
		if out.Active {
			delta = 1
		}
		s.addCachedCount(ctx, targetID, field, delta)
	}
	if out.Active {
		s.publishActivation(ctx, kind, me.UserID, targetID, out.OwnerID)
	}
	return ToggleResult{Active: out.Active, Count: out.Count}, nil
}

func (s *Service) addCachedCount(ctx context.Context, postID uint64, field repo.CounterField, delta int64) {
	if err := s.Counters.AddCount(ctx, postID, field, delta); err != nil {
		s.log.Warn("update cached counter", zap.Uint64("postId", postID), zap.String("field", string(field)), zap.Error(err))
	}
}

// publishActivation never fails the action; a lost event only costs a notification.
func (s *Service) publishActivation(ctx context.Context, kind repo.EdgeKind, actorID, targetID, ownerID uint64) {
	if ownerID == 0 || ownerID == actorID {
		return
	}
	var evt events.InteractionEvent
	switch kind {
	case repo.EdgeLike:
		evt = events.NewPostLiked(actorID, ownerID, targetID, s.Now())
	case repo.EdgeFollow:
		evt = events.NewUserFollowed(actorID, ownerID, s.Now())
	default:
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.PublishTimeout)
	defer cancel()
	if err := s.Publisher.Publish(pctx, evt); err != nil {
		s.log.Warn("publish interaction event", zap.String("type", evt.EventType), zap.String("eventId", evt.EventID), zap.Error(err))
	}
}
