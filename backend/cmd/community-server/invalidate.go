package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"community-service/backend/config"
	"community-service/backend/internal/cache"
	"community-service/backend/internal/logging"
	"community-service/backend/internal/repo"
)

type cacheInvalidation struct {
	catalog bool
	posts   []string
}

func (inv cacheInvalidation) postIDs() ([]uint64, error) {
	ids := make([]uint64, 0, len(inv.posts))
	for _, raw := range inv.posts {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid post id %q", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func invalidateCache(ctx context.Context, cfg *config.Config, inv cacheInvalidation) error {
	if !inv.catalog && len(inv.posts) == 0 {
		return errors.New("nothing to invalidate: pass --catalog or --post")
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// invalidation never reads the database, so the caches get no repositories
	sf := &singleflight.Group{}
	counters := cache.NewRedisCounters(rdb, sf, nil, cache.CounterOptions{})
	store := cache.NewCatalogCache(rdb, sf, nil, nil, cache.CatalogOptions{})
	return runInvalidation(ctx, counters, store, inv, log)
}

func runInvalidation(ctx context.Context, counters repo.CounterCache, store repo.StoreCache, inv cacheInvalidation, log *zap.Logger) error {
	ids, err := inv.postIDs()
	if err != nil {
		return err
	}
	if inv.catalog {
		if err := store.InvalidateCatalog(ctx); err != nil {
			return err
		}
		log.Info("badge catalog invalidated")
	}
	for _, id := range ids {
		if err := counters.Invalidate(ctx, id); err != nil {
			return fmt.Errorf("invalidate counters of post %d: %w", id, err)
		}
		log.Info("post counters invalidated", zap.Uint64("postId", id))
	}
	return nil
}
