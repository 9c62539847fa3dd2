package action

import (
	"context"

	"golang.org/x/sync/errgroup"

	"community-service/backend/internal/auth"
	"community-service/backend/internal/repo"
)

type PostStats struct {
	PostID     uint64 `json:"postId"`
	Likes      uint64 `json:"likes"`
	Bookmarks  uint64 `json:"bookmarks"`
	Comments   uint64 `json:"comments"`
	Views      uint64 `json:"views"`
	Liked      bool   `json:"liked"`
	Bookmarked bool   `json:"bookmarked"`
}

// PostStats reads the counters through the cache; an unknown post reports
// zeros. Liked and Bookmarked are filled only for an authenticated caller.
func (s *Service) PostStats(ctx context.Context, postID uint64) (PostStats, error) {
	if postID == 0 {
		return PostStats{}, NewError(KindInvalidArgument, "invalid post id")
	}

	stats := PostStats{PostID: postID}
	counters := []struct {
		field repo.CounterField
		dst   *uint64
	}{
		{repo.CounterLikes, &stats.Likes},
		{repo.CounterBookmarks, &stats.Bookmarks},
		{repo.CounterComments, &stats.Comments},
		{repo.CounterViews, &stats.Views},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		c := c
		g.Go(func() error {
			v, err := s.Counters.GetCount(gctx, postID, c.field)
			*c.dst = v
			return err
		})
	}
	if me, ok := auth.CallerFrom(ctx); ok {
		g.Go(func() error {
			var err error
			stats.Liked, err = s.Edges.HasEdge(gctx, repo.EdgeLike, me.UserID, postID)
			return err
		})
		g.Go(func() error {
			var err error
			stats.Bookmarked, err = s.Edges.HasEdge(gctx, repo.EdgeBookmark, me.UserID, postID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return PostStats{}, s.fail("post stats", err)
	}
	return stats, nil
}
