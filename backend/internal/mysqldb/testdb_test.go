package mysqldb

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"community-service/backend/internal/entity"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := OpenDialector(sqlite.Open(dsn), Options{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedPost(t *testing.T, db *gorm.DB, id, authorID uint64) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Post{ID: id, AuthorID: authorID, Title: "prompt"}).Error)
}

func seedProfile(t *testing.T, db *gorm.DB, userID uint64, points int64) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Profile{UserID: userID, Username: uuid.NewString()[:8], Points: points}).Error)
}

func seedBadge(t *testing.T, db *gorm.DB, id uint64, price int64, rarity string) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Badge{ID: id, Name: "badge", Rarity: rarity, Price: price}).Error)
}

// failInsertsAsDuplicate makes every insert into table fail with a duplicate key,
// as if a concurrent toggle had committed the same edge first.
func failInsertsAsDuplicate(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:duplicate_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(t, err)
}
