package mysqldb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-service/backend/internal/entity"
	"community-service/backend/internal/repo"
)

const (
	procToggleLike     = "toggle_post_like"
	procToggleBookmark = "toggle_post_bookmark"
	procToggleFollow   = "toggle_follow"
	procPurchaseBadge  = "purchase_badge"
	procRecordView     = "record_post_view"
)

var toggleProcNames = map[repo.EdgeKind]string{
	repo.EdgeLike:     procToggleLike,
	repo.EdgeBookmark: procToggleBookmark,
	repo.EdgeFollow:   procToggleFollow,
}

// errRacedInsert rolls back a toggle whose insert lost to a concurrent toggle.
var errRacedInsert = errors.New("edge inserted concurrently")

// mysqlProcedures runs each procedure as one gorm transaction. The counter row is
// locked first so concurrent toggles on the same target serialize on it.
type mysqlProcedures struct {
	db  *gorm.DB
	now func() time.Time
}

var _ repo.Procedures = (*mysqlProcedures)(nil)

func NewMySQLProcedures(db *gorm.DB) repo.Procedures {
	return &mysqlProcedures{db: db, now: time.Now}
}

type counterRow struct {
	Owner uint64
	Count uint64
}

func (p *mysqlProcedures) Toggle(ctx context.Context, kind repo.EdgeKind, userID, targetID uint64) (repo.ToggleOutcome, error) {
	spec, err := lookupEdge(kind)
	if err != nil {
		return repo.ToggleOutcome{}, err
	}
	proc := toggleProcNames[kind]
	if kind == repo.EdgeFollow && userID == targetID {
		return repo.ToggleOutcome{}, &repo.ProcedureError{Procedure: proc, Code: repo.CodeSelfFollow, Message: "cannot follow yourself"}
	}

	var out repo.ToggleOutcome
	var row counterRow
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Table(spec.counterTable).
			Select(spec.ownerCol+" AS owner, "+spec.counterCol+" AS count").
			Where(spec.counterKey+" = ?", targetID).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &repo.ProcedureError{Procedure: proc, Code: repo.CodeTargetNotFound, Message: "target not found"}
			}
			return err
		}

		del := spec.pairWhere(tx, userID, targetID).Delete(spec.model(0, 0))
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			err := tx.Table(spec.counterTable).
				Where(spec.counterKey+" = ?", targetID).
				Update(spec.counterCol, gorm.Expr("CASE WHEN "+spec.counterCol+" > 0 THEN "+spec.counterCol+" - 1 ELSE 0 END")).Error
			if err != nil {
				return err
			}
			out = repo.ToggleOutcome{Active: false, Count: decrFloor(row.Count), OwnerID: row.Owner, Changed: true}
			return nil
		}

		if err := tx.Create(spec.model(userID, targetID)).Error; err != nil {
			if isDuplicateKey(err) {
				return errRacedInsert
			}
			return err
		}
		err = tx.Table(spec.counterTable).
			Where(spec.counterKey+" = ?", targetID).
			Update(spec.counterCol, gorm.Expr(spec.counterCol+" + 1")).Error
		if err != nil {
			return err
		}
		out = repo.ToggleOutcome{Active: true, Count: row.Count + 1, OwnerID: row.Owner, Changed: true}
		return nil
	})
	if errors.Is(err, errRacedInsert) {
		// the other toggle already added the edge and bumped the counter
		return repo.ToggleOutcome{Active: true, Count: row.Count, OwnerID: row.Owner, Changed: false}, nil
	}
	if err != nil {
		return repo.ToggleOutcome{}, err
	}
	return out, nil
}

func decrFloor(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n - 1
}

func (p *mysqlProcedures) PurchaseBadge(ctx context.Context, userID, badgeID uint64) (repo.Purchase, error) {
	var out repo.Purchase
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var badge entity.Badge
		if err := tx.Where("id = ?", badgeID).Take(&badge).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeBadgeNotFound, Message: "badge not found"}
			}
			return err
		}

		var profile entity.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&profile).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeProfileNotFound, Message: "profile not found"}
			}
			return err
		}

		var owned int64
		err = tx.Model(&entity.BadgeOwnership{}).
			Where("user_id = ? AND badge_id = ?", userID, badgeID).
			Count(&owned).Error
		if err != nil {
			return err
		}
		if owned > 0 {
			return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeAlreadyOwned, Message: "badge already owned"}
		}
		if profile.Points < badge.Price {
			return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeInsufficientFunds, Message: "insufficient funds"}
		}

		res := tx.Model(&entity.Profile{}).
			Where("user_id = ? AND points >= ?", userID, badge.Price).
			Update("points", gorm.Expr("points - ?", badge.Price))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeInsufficientFunds, Message: "insufficient funds"}
		}

		err = tx.Create(&entity.BadgeOwnership{UserID: userID, BadgeID: badgeID, PurchasedAt: p.now()}).Error
		if err != nil {
			if isDuplicateKey(err) {
				return &repo.ProcedureError{Procedure: procPurchaseBadge, Code: repo.CodeAlreadyOwned, Message: "badge already owned"}
			}
			return err
		}
		out = repo.Purchase{BadgeID: badgeID, Price: badge.Price, Balance: profile.Points - badge.Price}
		return nil
	})
	if err != nil {
		return repo.Purchase{}, err
	}
	return out, nil
}

func (p *mysqlProcedures) RecordView(ctx context.Context, userID, postID uint64) (uint64, error) {
	var views uint64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table("posts").
			Where("id = ?", postID).
			Update("view_count", gorm.Expr("view_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &repo.ProcedureError{Procedure: procRecordView, Code: repo.CodeTargetNotFound, Message: "post not found"}
		}
		if err := tx.Table("posts").Select("view_count").Where("id = ?", postID).Scan(&views).Error; err != nil {
			return err
		}
		return tx.Create(&entity.HistoryView{UserID: userID, PostID: postID, ViewedAt: p.now()}).Error
	})
	if err != nil {
		return 0, err
	}
	return views, nil
}
