package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"community-service/backend/internal/repo"
)

// raise_exception, used by every procedure for business rejections
const pgRaiseException = "P0001"

var toggleFunctions = map[repo.EdgeKind]string{
	repo.EdgeLike:     "toggle_post_like",
	repo.EdgeBookmark: "toggle_post_bookmark",
	repo.EdgeFollow:   "toggle_follow",
}

type pgProcedures struct {
	pool *pgxpool.Pool
}

var _ repo.Procedures = (*pgProcedures)(nil)

func NewPgProcedures(pool *pgxpool.Pool) repo.Procedures {
	return &pgProcedures{pool: pool}
}

func (p *pgProcedures) Toggle(ctx context.Context, kind repo.EdgeKind, userID, targetID uint64) (repo.ToggleOutcome, error) {
	fn, ok := toggleFunctions[kind]
	if !ok {
		return repo.ToggleOutcome{}, fmt.Errorf("unknown edge kind %q", kind)
	}
	var (
		active, changed bool
		count, owner    *int64
	)
	err := p.pool.QueryRow(ctx,
		"SELECT active, count, owner_id, changed FROM "+fn+"($1, $2)",
		int64(userID), int64(targetID),
	).Scan(&active, &count, &owner, &changed)
	if err != nil {
		return repo.ToggleOutcome{}, translate(fn, err)
	}
	return repo.ToggleOutcome{
		Active:  active,
		Count:   nonNegative(count),
		OwnerID: nonNegative(owner),
		Changed: changed,
	}, nil
}

func (p *pgProcedures) PurchaseBadge(ctx context.Context, userID, badgeID uint64) (repo.Purchase, error) {
	const fn = "purchase_badge"
	var id, price, balance int64
	err := p.pool.QueryRow(ctx,
		"SELECT badge_id, price, balance FROM "+fn+"($1, $2)",
		int64(userID), int64(badgeID),
	).Scan(&id, &price, &balance)
	if err != nil {
		return repo.Purchase{}, translate(fn, err)
	}
	return repo.Purchase{BadgeID: uint64(id), Price: price, Balance: balance}, nil
}

func (p *pgProcedures) RecordView(ctx context.Context, userID, postID uint64) (uint64, error) {
	const fn = "record_post_view"
	var views int64
	if err := p.pool.QueryRow(ctx, "SELECT "+fn+"($1, $2)", int64(userID), int64(postID)).Scan(&views); err != nil {
		return 0, translate(fn, err)
	}
	return nonNegative(&views), nil
}

// translate turns a raised business rejection into a ProcedureError and wraps
// everything else.
func translate(fn string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgRaiseException {
		code := pgErr.Hint
		if code == "" {
			code = "rejected"
		}
		return &repo.ProcedureError{Procedure: fn, Code: code, Message: pgErr.Message}
	}
	return fmt.Errorf("call %s: %w", fn, err)
}

func nonNegative(v *int64) uint64 {
	if v == nil || *v < 0 {
		return 0
	}
	return uint64(*v)
}
