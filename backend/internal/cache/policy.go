package cache

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	BaseTTL          = 24 * time.Hour   // base expiry for counters
	Jitter           = 60 * time.Minute // random spread, avoids an avalanche of expiries
	EmptyCacheMarker = -1               // marks "not in the database"
	EmptyCacheTTL    = 5 * time.Minute
	EpochTTL         = time.Hour // outlives any fill in flight
)

// getRandomTTL spreads expiries so hot keys do not all miss at once.
func getRandomTTL(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(jitter)))
}

type policy struct {
	rdb     redis.UniversalClient
	sf      *singleflight.Group
	baseTTL time.Duration
	jitter  time.Duration
}

// readCounter reports hit=true for both real values and the empty marker.
func (p *policy) readCounter(ctx context.Context, key string) (uint64, bool, error) {
	res, err := p.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	// ParseUint would reject the -1 marker
	v, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, false, err
	}
	if v == EmptyCacheMarker || v < 0 {
		return 0, true, nil
	}
	return uint64(v), true, nil
}

// setIfEpochScript fills a cache entry only if no write or invalidation bumped
// the epoch since the filler read it. A missing epoch counts as "0".
// returns 1 when the value was written, 0 otherwise
var setIfEpochScript = redis.NewScript(`
local epoch = redis.call("GET", KEYS[2])
if epoch == false then
	epoch = "0"
end
if epoch ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// readEpoch must run before the database read whose result is cached.
func (p *policy) readEpoch(ctx context.Context, epochKey string) (string, error) {
	epoch, err := p.rdb.Get(ctx, epochKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return epoch, err
}

func (p *policy) setIfEpoch(ctx context.Context, key, epochKey, epoch string, val interface{}, ttl time.Duration) error {
	return setIfEpochScript.Run(ctx, p.rdb, []string{key, epochKey}, epoch, val, ttl.Milliseconds()).Err()
}

// bumpEpoch drops keys and fails every fill that started before it.
func (p *policy) bumpEpoch(ctx context.Context, epochKey string, keys ...string) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Incr(ctx, epochKey)
		pipe.Expire(ctx, epochKey, EpochTTL)
		return nil
	})
	return err
}

// getWithProtection is cache-aside with singleflight: concurrent misses on the same
// key share one database read. The fill is dropped when epochKey moved during the
// read, so a stale row never overwrites a newer write.
func (p *policy) getWithProtection(
	ctx context.Context,
	key, epochKey string,
	fetchDB func(ctx context.Context) (uint64, bool, error),
) (uint64, error) {
	val, err, _ := p.sf.Do(key, func() (interface{}, error) {
		v, hit, err := p.readCounter(ctx, key)
		if err != nil {
			return uint64(0), err
		}
		if hit {
			return v, nil
		}

		epoch, err := p.readEpoch(ctx, epochKey)
		if err != nil {
			return uint64(0), err
		}
		count, exists, err := fetchDB(ctx)
		if err != nil {
			return uint64(0), err
		}
		if !exists {
			// caches the miss so unknown ids cannot hammer the database
			_ = p.setIfEpoch(ctx, key, epochKey, epoch, EmptyCacheMarker, EmptyCacheTTL)
			return uint64(0), nil
		}
		_ = p.setIfEpoch(ctx, key, epochKey, epoch, count, getRandomTTL(p.baseTTL, p.jitter))
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	if v, ok := val.(uint64); ok {
		return v, nil
	}
	return 0, errors.New("internal type error")
}
