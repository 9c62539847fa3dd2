package mysqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

func procedureCode(t *testing.T, err error) string {
	t.Helper()
	var pe *repo.ProcedureError
	require.True(t, errors.As(err, &pe), "expected ProcedureError, got %v", err)
	return pe.Code
}

func TestToggleLikeTwiceIsNetZero(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, 10, 7)
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	first, err := procs.Toggle(ctx, repo.EdgeLike, 1, 10)
	require.NoError(t, err)
	assert.True(t, first.Active)
	assert.True(t, first.Changed)
	assert.Equal(t, uint64(1), first.Count)
	assert.Equal(t, uint64(7), first.OwnerID)

	second, err := procs.Toggle(ctx, repo.EdgeLike, 1, 10)
	require.NoError(t, err)
	assert.False(t, second.Active)
	assert.Equal(t, uint64(0), second.Count)

	var post entity.Post
	require.NoError(t, db.First(&post, 10).Error)
	assert.Equal(t, uint64(0), post.LikeCount)

	var edges int64
	require.NoError(t, db.Model(&entity.PostLike{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestToggleLostInsertRaceIsNoop(t *testing.T) {
	cases := []struct {
		kind  repo.EdgeKind
		table string
		owner uint64
	}{
		{repo.EdgeLike, "post_likes", 7},
		{repo.EdgeBookmark, "post_bookmarks", 7},
		{repo.EdgeFollow, "follows", 2},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			db := newTestDB(t)
			seedPost(t, db, 10, 7)
			seedProfile(t, db, 1, 0)
			seedProfile(t, db, 2, 0)
			failInsertsAsDuplicate(t, db, tc.table)

			target := uint64(10)
			if tc.kind == repo.EdgeFollow {
				target = 2
			}
			out, err := NewMySQLProcedures(db).Toggle(context.Background(), tc.kind, 1, target)
			require.NoError(t, err)
			assert.Equal(t, repo.ToggleOutcome{Active: true, Count: 0, OwnerID: tc.owner, Changed: false}, out)

			// the losing transaction left the counters alone
			var post entity.Post
			require.NoError(t, db.First(&post, 10).Error)
			assert.Zero(t, post.LikeCount)
			assert.Zero(t, post.BookmarkCount)
			var followee entity.Profile
			require.NoError(t, db.First(&followee, "user_id = ?", 2).Error)
			assert.Zero(t, followee.FollowerCount)
		})
	}
}

func TestToggleBookmarkIsIndependentOfLike(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, 10, 7)
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	_, err := procs.Toggle(ctx, repo.EdgeLike, 1, 10)
	require.NoError(t, err)
	out, err := procs.Toggle(ctx, repo.EdgeBookmark, 1, 10)
	require.NoError(t, err)
	assert.True(t, out.Active)
	assert.Equal(t, uint64(1), out.Count)

	var post entity.Post
	require.NoError(t, db.First(&post, 10).Error)
	assert.Equal(t, uint64(1), post.LikeCount)
	assert.Equal(t, uint64(1), post.BookmarkCount)
}

func TestToggleCountsEveryUser(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, 10, 7)
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	for uid := uint64(1); uid <= 3; uid++ {
		out, err := procs.Toggle(ctx, repo.EdgeLike, uid, 10)
		require.NoError(t, err)
		assert.Equal(t, uid, out.Count)
	}
	out, err := procs.Toggle(ctx, repo.EdgeLike, 2, 10)
	require.NoError(t, err)
	assert.False(t, out.Active)
	assert.Equal(t, uint64(2), out.Count)
}

func TestToggleDecrementNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, 10, 7)
	// edge without a matching counter, e.g. rows imported by hand
	require.NoError(t, db.Create(&entity.PostLike{UserID: 1, PostID: 10}).Error)

	out, err := NewMySQLProcedures(db).Toggle(context.Background(), repo.EdgeLike, 1, 10)
	require.NoError(t, err)
	assert.False(t, out.Active)
	assert.Equal(t, uint64(0), out.Count)

	var post entity.Post
	require.NoError(t, db.First(&post, 10).Error)
	assert.Equal(t, uint64(0), post.LikeCount)
}

func TestToggleMissingTarget(t *testing.T) {
	db := newTestDB(t)
	_, err := NewMySQLProcedures(db).Toggle(context.Background(), repo.EdgeLike, 1, 404)
	assert.Equal(t, repo.CodeTargetNotFound, procedureCode(t, err))
}

func TestToggleFollow(t *testing.T) {
	db := newTestDB(t)
	seedProfile(t, db, 1, 0)
	seedProfile(t, db, 2, 0)
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	out, err := procs.Toggle(ctx, repo.EdgeFollow, 1, 2)
	require.NoError(t, err)
	assert.True(t, out.Active)
	assert.Equal(t, uint64(1), out.Count)
	assert.Equal(t, uint64(2), out.OwnerID)

	_, err = procs.Toggle(ctx, repo.EdgeFollow, 1, 1)
	assert.Equal(t, repo.CodeSelfFollow, procedureCode(t, err))
}

func TestPurchaseBadgeDebitsExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	seedProfile(t, db, 1, 500)
	seedBadge(t, db, 3, 300, "rare")
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	got, err := procs.PurchaseBadge(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, repo.Purchase{BadgeID: 3, Price: 300, Balance: 200}, got)

	_, err = procs.PurchaseBadge(ctx, 1, 3)
	assert.Equal(t, repo.CodeAlreadyOwned, procedureCode(t, err))

	var p entity.Profile
	require.NoError(t, db.Where("user_id = ?", 1).First(&p).Error)
	assert.Equal(t, int64(200), p.Points)

	var owned int64
	require.NoError(t, db.Model(&entity.BadgeOwnership{}).Where("user_id = ?", 1).Count(&owned).Error)
	assert.Equal(t, int64(1), owned)
}

func TestPurchaseBadgeInsufficientFundsHasNoEffect(t *testing.T) {
	db := newTestDB(t)
	seedProfile(t, db, 1, 100)
	seedBadge(t, db, 3, 300, "rare")

	_, err := NewMySQLProcedures(db).PurchaseBadge(context.Background(), 1, 3)
	assert.Equal(t, repo.CodeInsufficientFunds, procedureCode(t, err))

	var p entity.Profile
	require.NoError(t, db.Where("user_id = ?", 1).First(&p).Error)
	assert.Equal(t, int64(100), p.Points)

	var owned int64
	require.NoError(t, db.Model(&entity.BadgeOwnership{}).Count(&owned).Error)
	assert.Zero(t, owned)
}

func TestPurchaseBadgeUnknownBadge(t *testing.T) {
	db := newTestDB(t)
	seedProfile(t, db, 1, 100)
	_, err := NewMySQLProcedures(db).PurchaseBadge(context.Background(), 1, 99)
	assert.Equal(t, repo.CodeBadgeNotFound, procedureCode(t, err))
}

func TestRecordView(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db, 10, 7)
	procs := NewMySQLProcedures(db)
	ctx := context.Background()

	views, err := procs.RecordView(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), views)
	views, err = procs.RecordView(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), views)

	var post entity.Post
	require.NoError(t, db.First(&post, 10).Error)
	assert.Equal(t, uint64(2), post.ViewCount)

	_, err = procs.RecordView(ctx, 1, 404)
	assert.Equal(t, repo.CodeTargetNotFound, procedureCode(t, err))

	var rows int64
	require.NoError(t, db.Model(&entity.HistoryView{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}
