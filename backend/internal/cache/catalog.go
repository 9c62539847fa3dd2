package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

// catalogEntry is what the catalog key holds. Version changes on every load from
// the database, so anything derived from the catalog can tell it is stale.
type catalogEntry struct {
	Version string         `json:"version"`
	Badges  []entity.Badge `json:"badges"`
}

// catalogCache holds the badge catalog, the rarity lookup derived from it, and one
// store snapshot per user. A purchase or equip invalidates that user's snapshot.
type catalogCache struct {
	policy
	badges   repo.BadgeRepo
	profiles repo.ProfileRepo

	catalogTTL time.Duration
	userTTL    time.Duration

	mu              sync.RWMutex
	rarities        map[uint64]string
	raritiesVersion string
}

var _ repo.StoreCache = (*catalogCache)(nil)

type CatalogOptions struct {
	CatalogTTL time.Duration
	UserTTL    time.Duration
}

func NewCatalogCache(rdb redis.UniversalClient, sf *singleflight.Group, badges repo.BadgeRepo, profiles repo.ProfileRepo, opt CatalogOptions) repo.StoreCache {
	if opt.CatalogTTL <= 0 {
		opt.CatalogTTL = time.Hour
	}
	if opt.UserTTL <= 0 {
		opt.UserTTL = 5 * time.Minute
	}
	return &catalogCache{
		policy:     policy{rdb: rdb, sf: sf},
		badges:     badges,
		profiles:   profiles,
		catalogTTL: opt.CatalogTTL,
		userTTL:    opt.UserTTL,
	}
}

// readJSON returns false on a plain miss.
func (c *catalogCache) readJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		// a corrupt entry is treated as a miss and overwritten
		return false, nil
	}
	return true, nil
}

func (c *catalogCache) writeJSON(ctx context.Context, key, epochKey, epoch string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.setIfEpoch(ctx, key, epochKey, epoch, b, ttl)
}

func (c *catalogCache) loadCatalog(ctx context.Context) (catalogEntry, error) {
	val, err, _ := c.sf.Do(CatalogKey, func() (interface{}, error) {
		var entry catalogEntry
		hit, err := c.readJSON(ctx, CatalogKey, &entry)
		if err != nil {
			return nil, err
		}
		if hit && entry.Version != "" {
			return entry, nil
		}

		epoch, err := c.readEpoch(ctx, CatalogEpochKey)
		if err != nil {
			return nil, err
		}
		badges, err := c.badges.ListBadges(ctx)
		if err != nil {
			return nil, err
		}
		entry = catalogEntry{Version: uuid.NewString(), Badges: badges}
		_ = c.writeJSON(ctx, CatalogKey, CatalogEpochKey, epoch, entry, getRandomTTL(c.catalogTTL, c.catalogTTL/10))
		return entry, nil
	})
	if err != nil {
		return catalogEntry{}, err
	}
	entry, ok := val.(catalogEntry)
	if !ok {
		return catalogEntry{}, errors.New("internal type error")
	}
	return entry, nil
}

func (c *catalogCache) Badges(ctx context.Context) ([]entity.Badge, error) {
	entry, err := c.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return append([]entity.Badge(nil), entry.Badges...), nil
}

// Rarities is computed once per catalog version: a catalog reloaded from the
// database, after expiry or InvalidateCatalog, gets a fresh lookup.
func (c *catalogCache) Rarities(ctx context.Context) (map[uint64]string, error) {
	entry, err := c.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	cached, version := c.rarities, c.raritiesVersion
	c.mu.RUnlock()
	if cached == nil || version != entry.Version {
		cached = make(map[uint64]string, len(entry.Badges))
		for _, b := range entry.Badges {
			cached[b.ID] = b.Rarity
		}
		c.mu.Lock()
		c.rarities, c.raritiesVersion = cached, entry.Version
		c.mu.Unlock()
	}

	out := make(map[uint64]string, len(cached))
	for k, v := range cached {
		out[k] = v
	}
	return out, nil
}

// UserStore reads the caller's balance and inventory through the cache. A fill
// that raced with InvalidateUser returns what it read but does not cache it.
func (c *catalogCache) UserStore(ctx context.Context, userID uint64) (repo.StoreSnapshot, error) {
	key, epochKey := GetUserStoreKey(userID), GetUserEpochKey(userID)
	val, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var snap repo.StoreSnapshot
		hit, err := c.readJSON(ctx, key, &snap)
		if err != nil {
			return nil, err
		}
		if hit {
			return snap, nil
		}

		epoch, err := c.readEpoch(ctx, epochKey)
		if err != nil {
			return nil, err
		}
		var (
			profile *entity.Profile
			owned   []uint64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			profile, err = c.profiles.GetProfile(gctx, userID)
			return err
		})
		g.Go(func() error {
			var err error
			owned, err = c.badges.ListOwnedBadgeIDs(gctx, userID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if owned == nil {
			owned = []uint64{}
		}
		snap = repo.StoreSnapshot{
			Points:          profile.Points,
			EquippedBadgeID: profile.EquippedBadgeID,
			OwnedBadgeIDs:   owned,
		}
		_ = c.writeJSON(ctx, key, epochKey, epoch, snap, c.userTTL)
		return snap, nil
	})
	if err != nil {
		return repo.StoreSnapshot{}, err
	}
	snap, ok := val.(repo.StoreSnapshot)
	if !ok {
		return repo.StoreSnapshot{}, errors.New("internal type error")
	}
	return snap, nil
}

func (c *catalogCache) InvalidateUser(ctx context.Context, userID uint64) error {
	if err := c.bumpEpoch(ctx, GetUserEpochKey(userID), GetUserStoreKey(userID)); err != nil {
		return fmt.Errorf("invalidate store of user %d: %w", userID, err)
	}
	return nil
}

// InvalidateCatalog drops the cached catalog; the next read reloads it under a
// new version.
func (c *catalogCache) InvalidateCatalog(ctx context.Context) error {
	if err := c.bumpEpoch(ctx, CatalogEpochKey, CatalogKey); err != nil {
		return fmt.Errorf("invalidate badge catalog: %w", err)
	}
	return nil
}
