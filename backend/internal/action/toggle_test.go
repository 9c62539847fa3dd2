package action

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"community-service/backend/internal/cache"
	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

func TestToggleLikeTwiceIsNetZero(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)
	ctx := asUser(1)

	first, err := h.svc.ToggleLike(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 1}, first)

	second, err := h.svc.ToggleLike(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: false, Count: 0}, second)

	var post entity.Post
	require.NoError(t, h.db.First(&post, 10).Error)
	assert.Zero(t, post.LikeCount)
	assert.Zero(t, h.count(t, &entity.PostLike{}, "post_id = ?", 10))

	evts := h.pub.published()
	require.Len(t, evts, 1)
	assert.Equal(t, entity.NotificationPostLiked, evts[0].EventType)
	assert.Equal(t, uint64(7), evts[0].RecipientID)
	assert.Equal(t, uint64(10), evts[0].PostID)
}

func TestToggleBookmarkIsIndependentOfLike(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)
	ctx := asUser(1)

	_, err := h.svc.ToggleLike(ctx, 10)
	require.NoError(t, err)
	res, err := h.svc.ToggleBookmark(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 1}, res)

	stats, err := h.svc.PostStats(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, PostStats{PostID: 10, Likes: 1, Bookmarks: 1, Liked: true, Bookmarked: true}, stats)
	// bookmarks never notify
	assert.Len(t, h.pub.published(), 1)
}

func TestToggleWritesThroughCachedCounter(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)

	// warm the cache
	stats, err := h.svc.PostStats(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, stats.Likes)
	assert.False(t, stats.Liked)

	_, err = h.svc.ToggleLike(asUser(1), 10)
	require.NoError(t, err)
	_, err = h.svc.ToggleLike(asUser(2), 10)
	require.NoError(t, err)

	cached, err := h.mr.Get(cache.GetPostCounterKey(10, repo.CounterLikes))
	require.NoError(t, err)
	assert.Equal(t, "2", cached)

	stats, err = h.svc.PostStats(asUser(2), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Likes)
	assert.True(t, stats.Liked)
}

func TestToggleOwnPostDoesNotNotify(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)

	_, err := h.svc.ToggleLike(asUser(7), 10)
	require.NoError(t, err)
	assert.Empty(t, h.pub.published())
}

func TestTogglePublishFailureDoesNotFailAction(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)
	h.pub.err = errors.New("queue full")

	res, err := h.svc.ToggleLike(asUser(1), 10)
	require.NoError(t, err)
	assert.True(t, res.Active)
}

func TestToggleErrors(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)

	_, err := h.svc.ToggleLike(context.Background(), 10)
	assert.Equal(t, KindUnauthenticated, kindOf(t, err))

	_, err = h.svc.ToggleBookmark(context.Background(), 10)
	assert.Equal(t, KindUnauthenticated, kindOf(t, err))

	_, err = h.svc.ToggleLike(asUser(1), 404)
	assert.Equal(t, KindNotFound, kindOf(t, err))

	_, err = h.svc.ToggleLike(asUser(1), 0)
	assert.Equal(t, KindInvalidArgument, kindOf(t, err))
}

func TestToggleFollow(t *testing.T) {
	h := newHarness(t)
	h.seedProfile(t, 1, 0)
	h.seedProfile(t, 2, 0)

	_, err := h.svc.ToggleFollow(asUser(1), 1)
	assert.Equal(t, KindInvalidArgument, kindOf(t, err))

	res, err := h.svc.ToggleFollow(asUser(1), 2)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 1}, res)
	assert.Equal(t, uint64(1), h.profile(t, 2).FollowerCount)

	evts := h.pub.published()
	require.Len(t, evts, 1)
	assert.Equal(t, entity.NotificationUserFollowed, evts[0].EventType)
	assert.Equal(t, uint64(2), evts[0].RecipientID)

	res, err = h.svc.ToggleFollow(asUser(1), 2)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: false, Count: 0}, res)

	_, err = h.svc.ToggleFollow(asUser(1), 99)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

// heldCounters parks the first cache update until release is closed.
type heldCounters struct {
	repo.CounterCache
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (c *heldCounters) AddCount(ctx context.Context, postID uint64, field repo.CounterField, delta int64) error {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.held)
		<-c.release
	}
	return c.CounterCache.AddCount(ctx, postID, field, delta)
}

func TestToggleCacheUpdatesOutOfOrderConverge(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)

	_, err := h.svc.PostStats(context.Background(), 10)
	require.NoError(t, err)

	held := &heldCounters{CounterCache: h.svc.Counters, held: make(chan struct{}), release: make(chan struct{})}
	h.svc.Counters = held

	// user 1 commits first, but its cache update lands last
	done := make(chan error, 1)
	go func() {
		_, err := h.svc.ToggleLike(asUser(1), 10)
		done <- err
	}()
	<-held.held
	res, err := h.svc.ToggleLike(asUser(2), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Count)
	close(held.release)
	require.NoError(t, <-done)

	var post entity.Post
	require.NoError(t, h.db.First(&post, 10).Error)
	assert.Equal(t, uint64(2), post.LikeCount)

	stats, err := h.svc.PostStats(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, post.LikeCount, stats.Likes)
}

func TestToggleLostInsertRaceReportsActive(t *testing.T) {
	h := newHarness(t)
	h.seedPost(t, 10, 7)

	_, err := h.svc.PostStats(context.Background(), 10)
	require.NoError(t, err)

	// the edge insert fails as if another toggle had committed it first
	err = h.db.Callback().Create().Before("gorm:create").Register("test:duplicate_like", func(tx *gorm.DB) {
		if tx.Statement.Table == "post_likes" {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(t, err)

	res, err := h.svc.ToggleLike(asUser(1), 10)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 0}, res)
	assert.Empty(t, h.pub.published())

	cached, err := h.mr.Get(cache.GetPostCounterKey(10, repo.CounterLikes))
	require.NoError(t, err)
	assert.Equal(t, "0", cached)
}
