package db

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"gitlab.com/avoncourt/revue/internal/models"
)

// Follow creates the (h, target) edge. The target is resolved by
// username, the way the subscription form submits it. Privileged
// accounts can't be followed; a concurrent duplicate surfaces as
// ErrAlreadyFollowing through the primary key.
func (h UserH) Follow(ctx context.Context, targetName string) error {
	target := &models.User{}
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.is_superuser").
		From("users").
		Where(sq.Eq{"name": targetName}).
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, target, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if target.ID == h.id {
		return models.ErrSelfFollow
	}
	if target.IsSuperuser {
		return models.ErrPrivilegedFollow
	}

	sql, args, _ = psql.
		Insert("follows").
		Columns("follower_id", "followed_id").
		Values(h.id, target.ID).
		ToSql()

	_, err = h.sharedDB.Exec(ctx, sql, args...)
	if isConstraintErr(err, "follows_pkey") {
		return models.ErrAlreadyFollowing
	}
	return err
}

// Unfollow removes the edge towards the given user id. Deleting an
// edge that doesn't exist is a no-op; only an unresolvable user id is
// an error.
func (h UserH) Unfollow(ctx context.Context, targetID int) error {
	sql, args, _ := psql.
		Select("1").
		From("users").
		Where(sq.Eq{"id": targetID}).
		ToSql()

	exists := 0
	row := h.sharedDB.QueryRow(ctx, sql, args...)
	err := row.Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	sql, args, _ = psql.
		Delete("follows").
		Where(sq.Eq{"follower_id": h.id, "followed_id": targetID}).
		ToSql()
	_, err = h.sharedDB.Exec(ctx, sql, args...)
	return err
}

func (h UserH) ListFollowing(ctx context.Context) ([]models.FollowView, error) {
	follows := []models.FollowView{}
	sql, args, _ := psql.
		Select("users.id AS user_id", "users.name", "follows.created_at").
		From("follows").
		Join("users ON users.id = follows.followed_id").
		Where(sq.Eq{"follows.follower_id": h.id}).
		OrderBy("users.name").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &follows, sql, args...)
	if err != nil {
		return nil, err
	}
	return follows, nil
}

func (h UserH) ListFollowers(ctx context.Context) ([]models.FollowView, error) {
	follows := []models.FollowView{}
	sql, args, _ := psql.
		Select("users.id AS user_id", "users.name", "follows.created_at").
		From("follows").
		Join("users ON users.id = follows.follower_id").
		Where(sq.Eq{"follows.followed_id": h.id}).
		OrderBy("users.name").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &follows, sql, args...)
	if err != nil {
		return nil, err
	}
	return follows, nil
}

// ListFollowCandidates returns the users this one could still follow:
// no superusers, nobody already followed, not themselves.
func (h UserH) ListFollowCandidates(ctx context.Context) ([]models.UserView, error) {
	users := []models.UserView{}
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.is_superuser", "users.created_at").
		From("users").
		LeftJoin("follows ON follows.followed_id = users.id AND follows.follower_id = ?", h.id).
		Where(sq.And{
			sq.Eq{"users.is_superuser": false},
			sq.Eq{"follows.follower_id": nil},
			sq.NotEq{"users.id": h.id},
		}).
		OrderBy("users.name").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &users, sql, args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// likeEscaper neutralizes the LIKE metacharacters, so a query
// containing "_" or "%" matches those characters literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchUser finds the first user whose name contains the query,
// case-insensitively. Superusers are not filtered here: only the
// follow action refuses them.
func (sdb *SharedDB) SearchUser(ctx context.Context, query string) (*models.User, error) {
	if len(query) == 0 || len(query) > LimitMaxSearchLen {
		return nil, models.ErrInvalidFormat
	}

	user := &models.User{}
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.is_superuser").
		From("users").
		Where("users.name ILIKE ?", "%"+likeEscaper.Replace(query)+"%").
		OrderBy("users.name").
		Limit(1).
		ToSql()

	err := pgxscan.Get(ctx, sdb.db, user, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
