package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

// addIfCachedScript applies a delta to a cached counter, floored at 0. Deltas
// commute, so writers finishing out of order still converge on the database value.
// A cold counter (or a cached miss) is left for the next read to load, and the epoch
// bump stops a read already in flight from caching what it saw before this write.
// returns the new value, or -1 when nothing was cached
var addIfCachedScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false or tonumber(v) < 0 then
	redis.call("DEL", KEYS[1])
	redis.call("INCR", KEYS[2])
	redis.call("EXPIRE", KEYS[2], ARGV[2])
	return -1
end
local n = redis.call("INCRBY", KEYS[1], ARGV[1])
if n < 0 then
	redis.call("SET", KEYS[1], "0", "KEEPTTL")
	return 0
end
return n
`)

type redisCounters struct {
	policy
	postRepo repo.PostStatsRepo
}

var _ repo.CounterCache = (*redisCounters)(nil)

type CounterOptions struct {
	BaseTTL time.Duration
	Jitter  time.Duration
}

func NewRedisCounters(rdb redis.UniversalClient, sf *singleflight.Group, postRepo repo.PostStatsRepo, opt CounterOptions) repo.CounterCache {
	if opt.BaseTTL <= 0 {
		opt.BaseTTL = BaseTTL
	}
	if opt.Jitter == 0 {
		opt.Jitter = Jitter
	}
	return &redisCounters{
		policy:   policy{rdb: rdb, sf: sf, baseTTL: opt.BaseTTL, jitter: opt.Jitter},
		postRepo: postRepo,
	}
}

func counterValue(p *entity.Post, field repo.CounterField) (uint64, error) {
	switch field {
	case repo.CounterLikes:
		return p.LikeCount, nil
	case repo.CounterBookmarks:
		return p.BookmarkCount, nil
	case repo.CounterComments:
		return p.CommentCount, nil
	case repo.CounterViews:
		return p.ViewCount, nil
	default:
		return 0, fmt.Errorf("unknown counter %q", field)
	}
}

func (r *redisCounters) GetCount(ctx context.Context, postID uint64, field repo.CounterField) (uint64, error) {
	key := GetPostCounterKey(postID, field)
	return r.getWithProtection(ctx, key, GetPostEpochKey(postID), func(ctx context.Context) (uint64, bool, error) {
		stats, err := r.postRepo.GetPostStats(ctx, postID)
		if err != nil {
			return 0, false, err
		}
		// triggers the empty marker
		if stats == nil {
			return 0, false, nil
		}
		v, err := counterValue(stats, field)
		return v, err == nil, err
	})
}

func (r *redisCounters) AddCount(ctx context.Context, postID uint64, field repo.CounterField, delta int64) error {
	if delta == 0 {
		return nil
	}
	keys := []string{GetPostCounterKey(postID, field), GetPostEpochKey(postID)}
	return addIfCachedScript.Run(ctx, r.rdb, keys, delta, int64(EpochTTL/time.Second)).Err()
}

// Invalidate drops every cached counter of the post; the next reads reload them.
func (r *redisCounters) Invalidate(ctx context.Context, postID uint64) error {
	return r.bumpEpoch(ctx, GetPostEpochKey(postID), postCounterKeys(postID)...)
}
