package db

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"gitlab.com/avoncourt/revue/internal/models"
)

type userPerms struct {
	Delete bool
	Read   bool
}

// UserH is a handle to the user behind a session token. Every
// viewer-scoped query hangs off it.
type UserH struct {
	id       int
	perms    userPerms
	sharedDB DBTX
}

func (sdb *SharedDB) GetUserH(ctx context.Context, token string) (UserH, error) {
	sql, args, _ := psql.
		Select("user_id").
		From("tokens").
		Where(sq.Eq{"token": token}).
		ToSql()

	uH := UserH{
		sharedDB: sdb.db,
		perms: userPerms{
			Read:   true,
			Delete: true,
		},
	}
	row := sdb.db.QueryRow(ctx, sql, args...)
	err := row.Scan(&uH.id)
	if err != nil {
		return uH, err
	}
	return uH, nil
}

func (h UserH) ID() int {
	return h.id
}

func (h UserH) Read(ctx context.Context) (*models.User, error) {
	if !h.perms.Read {
		return nil, ErrPermDenied
	}
	user := &models.User{}
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.is_superuser").
		From("users").
		Where(sq.Eq{"id": h.id}).
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, user, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (h UserH) Delete(ctx context.Context) error {
	if !h.perms.Delete {
		return ErrPermDenied
	}
	sql, args, _ := psql.Delete("users").Where(sq.Eq{"id": h.id}).ToSql()
	_, err := h.sharedDB.Exec(ctx, sql, args...)
	return err
}

// ListMyTickets returns every ticket owned by this user, most recent
// first, reviewed or not. Used by the posts page.
func (h UserH) ListMyTickets(ctx context.Context) ([]models.TicketView, error) {
	tickets := []models.TicketView{}
	sql, args, _ := selectTicketWithJoins.
		Where(sq.Eq{"tickets.owner_id": h.id}).
		OrderBy("tickets.created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &tickets, sql, args...)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (h UserH) ListMyReviews(ctx context.Context) ([]models.ReviewView, error) {
	reviews := []models.ReviewView{}
	sql, args, _ := selectReviewWithJoins.
		Where(sq.Eq{"reviews.author_id": h.id}).
		OrderBy("reviews.created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &reviews, sql, args...)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}
