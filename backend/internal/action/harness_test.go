package action

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"community-service/backend/internal/auth"
	"community-service/backend/internal/cache"
	"community-service/backend/internal/entity"
	"community-service/backend/internal/events"
	"community-service/backend/internal/mysqldb"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.InteractionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.InteractionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) published() []events.InteractionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.InteractionEvent(nil), p.events...)
}

// harness wires the service to SQLite through the gorm repositories and to an
// in-process Redis through the real caches.
type harness struct {
	db  *gorm.DB
	mr  *miniredis.Miniredis
	pub *recordingPublisher
	svc *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := mysqldb.OpenDialector(sqlite.Open(dsn), mysqldb.Options{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, mysqldb.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sf := &singleflight.Group{}
	badges := mysqldb.NewMySQLBadgeRepo(db)
	profiles := mysqldb.NewMySQLProfileRepo(db)
	pub := &recordingPublisher{}
	svc, err := NewService(Deps{
		Procedures:    mysqldb.NewMySQLProcedures(db),
		Edges:         mysqldb.NewMySQLEdgeRepo(db),
		Profiles:      profiles,
		Badges:        badges,
		History:       mysqldb.NewMySQLHistoryRepo(db),
		Notifications: mysqldb.NewMySQLNotificationRepo(db),
		Counters:      cache.NewRedisCounters(rdb, sf, mysqldb.NewMySQLPostRepo(db), cache.CounterOptions{}),
		StoreCache:    cache.NewCatalogCache(rdb, sf, badges, profiles, cache.CatalogOptions{}),
		Publisher:     pub,
		Log:           zap.NewNop(),
	})
	require.NoError(t, err)
	return &harness{db: db, mr: mr, pub: pub, svc: svc}
}

func (h *harness) seedPost(t *testing.T, id, authorID uint64) {
	t.Helper()
	require.NoError(t, h.db.Create(&entity.Post{ID: id, AuthorID: authorID, Title: "prompt"}).Error)
}

func (h *harness) seedProfile(t *testing.T, userID uint64, points int64) {
	t.Helper()
	require.NoError(t, h.db.Create(&entity.Profile{UserID: userID, Username: uuid.NewString()[:8], Points: points}).Error)
}

func (h *harness) seedBadge(t *testing.T, id uint64, price int64, rarity string) {
	t.Helper()
	require.NoError(t, h.db.Create(&entity.Badge{ID: id, Name: "badge", Rarity: rarity, Price: price}).Error)
}

func (h *harness) profile(t *testing.T, userID uint64) entity.Profile {
	t.Helper()
	var p entity.Profile
	require.NoError(t, h.db.First(&p, "user_id = ?", userID).Error)
	return p
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func asUser(userID uint64) context.Context {
	return auth.WithCaller(context.Background(), auth.Identity{UserID: userID})
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "expected *action.Error, got %T: %v", err, err)
	return e.Kind
}
