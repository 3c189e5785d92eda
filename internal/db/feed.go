// This file holds the feed: the visibility queries and the merged,
// viewer-scoped timeline built from them.
package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/avoncourt/revue/internal/models"
)

var selectTicketWithJoins = psql.
	Select(
		"tickets.id",
		"tickets.owner_id",
		"tickets.title",
		"tickets.description",
		"tickets.image_url",
		"tickets.created_at",
		"users.name AS owner_name",
	).
	From("tickets").
	Join("users ON users.id = tickets.owner_id")

var selectReviewWithJoins = psql.
	Select(
		"reviews.id",
		"reviews.ticket_id",
		"reviews.author_id",
		"reviews.rating",
		"reviews.headline",
		"reviews.body",
		"reviews.created_at",
		"authors.name AS author_name",
		"tickets.title AS ticket_title",
		"owners.name AS ticket_owner",
	).
	From("reviews").
	Join("tickets ON tickets.id = reviews.ticket_id").
	Join("users AS authors ON authors.id = reviews.author_id").
	Join("users AS owners ON owners.id = tickets.owner_id")

// VisibleReviews are the reviews this user's feed shows: written by
// someone they follow, written by themselves, or written about one of
// their own tickets.
func (h UserH) VisibleReviews(ctx context.Context) ([]models.ReviewView, error) {
	reviews := []models.ReviewView{}
	sqlquery, args, _ := selectReviewWithJoins.
		Distinct().
		LeftJoin("follows ON follows.followed_id = reviews.author_id AND follows.follower_id = ?", h.id).
		Where(sq.Or{
			sq.NotEq{"follows.follower_id": nil},
			sq.Eq{"reviews.author_id": h.id},
			sq.Eq{"tickets.owner_id": h.id},
		}).
		OrderBy("reviews.created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &reviews, sqlquery, args...)
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// VisibleTicketsWithoutReview are the still-unreviewed tickets of
// followed users, plus the user's own. A reviewed ticket shows up in
// the feed through its review instead.
func (h UserH) VisibleTicketsWithoutReview(ctx context.Context) ([]models.TicketView, error) {
	tickets := []models.TicketView{}
	sqlquery, args, _ := selectTicketWithJoins.
		Distinct().
		LeftJoin("reviews ON reviews.ticket_id = tickets.id").
		LeftJoin("follows ON follows.followed_id = tickets.owner_id AND follows.follower_id = ?", h.id).
		Where(sq.And{
			sq.Eq{"reviews.id": nil},
			sq.Or{
				sq.NotEq{"follows.follower_id": nil},
				sq.Eq{"tickets.owner_id": h.id},
			},
		}).
		OrderBy("tickets.created_at DESC").
		ToSql()

	err := pgxscan.Select(ctx, h.sharedDB, &tickets, sqlquery, args...)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// Feed recomputes the merged timeline on every call. No cache: the
// two queries above are bounded reads and the merge is in-memory.
func (h UserH) Feed(ctx context.Context) ([]models.FeedItem, error) {
	reviews, err := h.VisibleReviews(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := h.VisibleTicketsWithoutReview(ctx)
	if err != nil {
		return nil, err
	}
	return models.MergeFeed(reviews, tickets), nil
}
