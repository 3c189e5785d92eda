package db

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"gitlab.com/avoncourt/revue/internal/models"
)

type reviewPerms struct {
	Update bool
	Delete bool
	// EditTicket is set when the review's author also owns the
	// ticket: only then does the edit page expose both forms.
	EditTicket bool
}

type ReviewH struct {
	id       int
	ticketID int
	perms    reviewPerms
	sharedDB DBTX
}

// CreateReview attaches a review to an existing ticket. A ticket holds
// at most one review; a second one trips the unique constraint.
func (sdb *SharedDB) CreateReview(ctx context.Context, uH UserH, ticketID int, review *models.Review) (*ReviewH, error) {
	if err := validateReview(review); err != nil {
		return nil, err
	}

	review.TicketID = ticketID
	review.AuthorID = uH.id
	err := insertReview(ctx, sdb.db, review)
	if isConstraintErr(err, "reviews_ticket_id_key") {
		return nil, models.ErrAlreadyReviewed
	}
	if isConstraintErr(err, "reviews_ticket_id_fkey") {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ReviewH{
		id:       review.ID,
		ticketID: review.TicketID,
		perms:    reviewPerms{Update: true, Delete: true},
		sharedDB: sdb.db,
	}, nil
}

// CreateTicketWithReview creates a ticket and its review together, the
// "create a review from scratch" page. Both rows or neither.
func (sdb *SharedDB) CreateTicketWithReview(ctx context.Context, uH UserH, ticket *models.Ticket, review *models.Review) error {
	if err := validateTicket(ticket); err != nil {
		return err
	}
	if err := validateReview(review); err != nil {
		return err
	}

	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		ticket.OwnerID = uH.id
		if err := insertTicket(ctx, tx, ticket); err != nil {
			return err
		}
		review.TicketID = ticket.ID
		review.AuthorID = uH.id
		return insertReview(ctx, tx, review)
	})
}

func (sdb *SharedDB) GetReviewH(ctx context.Context, reviewID int, uH *UserH) (*ReviewH, error) {
	var data struct {
		TicketID      int `db:"ticket_id"`
		AuthorID      int `db:"author_id"`
		TicketOwnerID int `db:"ticket_owner_id"`
	}
	sqlquery, args, _ := psql.
		Select("reviews.ticket_id", "reviews.author_id", "tickets.owner_id AS ticket_owner_id").
		From("reviews").
		Join("tickets ON tickets.id = reviews.ticket_id").
		Where(sq.Eq{"reviews.id": reviewID}).
		ToSql()

	err := pgxscan.Get(ctx, sdb.db, &data, sqlquery, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}

	isAuthor := uH != nil && uH.id == data.AuthorID
	ownsTicket := uH != nil && uH.id == data.TicketOwnerID
	return &ReviewH{
		id:       reviewID,
		ticketID: data.TicketID,
		perms: reviewPerms{
			Update:     isAuthor,
			Delete:     isAuthor,
			EditTicket: isAuthor && ownsTicket,
		},
		sharedDB: sdb.db,
	}, nil
}

func (h ReviewH) ID() int {
	return h.id
}

func (h ReviewH) TicketID() int {
	return h.ticketID
}

// CanEditTicket reports whether the edit page should expose the ticket
// form next to the review form.
func (h ReviewH) CanEditTicket() bool {
	return h.perms.EditTicket
}

func (h ReviewH) ReadView(ctx context.Context) (*models.ReviewView, error) {
	var review models.ReviewView
	sqlquery, args, _ := selectReviewWithJoins.
		Where(sq.Eq{"reviews.id": h.id}).
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, &review, sqlquery, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Update persists the review's own fields only. The underlying ticket
// is never touched here, whoever owns it.
func (h ReviewH) Update(ctx context.Context, rating int, headline, body string) error {
	if !h.perms.Update {
		return ErrPermDenied
	}
	if err := validateReview(&models.Review{Rating: rating, Headline: headline, Body: body}); err != nil {
		return err
	}

	sqlquery, args, _ := psql.
		Update("reviews").
		Set("rating", rating).
		Set("headline", headline).
		Set("body", body).
		Where(sq.Eq{"id": h.id}).
		ToSql()

	_, err := h.sharedDB.Exec(ctx, sqlquery, args...)
	return err
}

// UpdateWithTicket edits review and ticket jointly. Allowed only when
// the same user authored both.
func (h ReviewH) UpdateWithTicket(ctx context.Context, rating int, headline, body, title, description string, imageURL sql.NullString) error {
	if !h.perms.EditTicket {
		return ErrPermDenied
	}
	if err := validateReview(&models.Review{Rating: rating, Headline: headline, Body: body}); err != nil {
		return err
	}
	if err := validateTicket(&models.Ticket{Title: title, Description: description}); err != nil {
		return err
	}

	return execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sqlquery, args, _ := psql.
			Update("reviews").
			Set("rating", rating).
			Set("headline", headline).
			Set("body", body).
			Where(sq.Eq{"id": h.id}).
			ToSql()
		if _, err := tx.Exec(ctx, sqlquery, args...); err != nil {
			return err
		}

		sqlquery, args, _ = psql.
			Update("tickets").
			Set("title", title).
			Set("description", description).
			Set("image_url", imageURL).
			Where(sq.Eq{"id": h.ticketID}).
			ToSql()
		_, err := tx.Exec(ctx, sqlquery, args...)
		return err
	})
}

func (h ReviewH) Delete(ctx context.Context) error {
	if !h.perms.Delete {
		return ErrPermDenied
	}
	sqlquery, args, _ := psql.Delete("reviews").Where(sq.Eq{"id": h.id}).ToSql()
	_, err := h.sharedDB.Exec(ctx, sqlquery, args...)
	return err
}

func validateReview(review *models.Review) error {
	if !models.ValidRating(review.Rating) {
		return models.ErrBadRating
	}
	if len(review.Headline) == 0 || len(review.Headline) > LimitMaxTitleLen {
		return models.ErrInvalidFormat
	}
	if len(review.Body) > LimitMaxContentLen {
		return models.ErrInvalidFormat
	}
	return nil
}

func insertReview(ctx context.Context, db DBTX, review *models.Review) error {
	sqlquery, args, _ := psql.
		Insert("reviews").
		Columns("ticket_id", "author_id", "rating", "headline", "body").
		Values(review.TicketID, review.AuthorID, review.Rating, review.Headline, review.Body).
		Suffix("RETURNING id, created_at").
		ToSql()

	row := db.QueryRow(ctx, sqlquery, args...)
	return row.Scan(&review.ID, &review.CreatedAt)
}
