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

type ticketPerms struct {
	Update bool
	Delete bool
}

// TicketH is a handle to a single ticket, carrying the perms of the
// user it was resolved for.
type TicketH struct {
	id       int
	perms    ticketPerms
	sharedDB DBTX
}

func (sdb *SharedDB) CreateTicket(ctx context.Context, uH UserH, ticket *models.Ticket) (*TicketH, error) {
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}

	ticket.OwnerID = uH.id
	err := insertTicket(ctx, sdb.db, ticket)
	if err != nil {
		return nil, err
	}
	return &TicketH{
		id:       ticket.ID,
		perms:    ticketPerms{Update: true, Delete: true},
		sharedDB: sdb.db,
	}, nil
}

func (sdb *SharedDB) GetTicketH(ctx context.Context, ticketID int, uH *UserH) (*TicketH, error) {
	ownerID := 0
	sqlquery, args, _ := psql.
		Select("owner_id").
		From("tickets").
		Where(sq.Eq{"id": ticketID}).
		ToSql()

	row := sdb.db.QueryRow(ctx, sqlquery, args...)
	err := row.Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	isOwner := uH != nil && uH.id == ownerID
	return &TicketH{
		id:       ticketID,
		perms:    ticketPerms{Update: isOwner, Delete: isOwner},
		sharedDB: sdb.db,
	}, nil
}

func (h TicketH) ID() int {
	return h.id
}

// CanEdit reports whether the handle's user owns the ticket.
func (h TicketH) CanEdit() bool {
	return h.perms.Update
}

func (h TicketH) ReadView(ctx context.Context) (*models.TicketView, error) {
	var ticket models.TicketView
	sqlquery, args, _ := selectTicketWithJoins.
		Where(sq.Eq{"tickets.id": h.id}).
		ToSql()

	err := pgxscan.Get(ctx, h.sharedDB, &ticket, sqlquery, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (h TicketH) Update(ctx context.Context, title, description string, imageURL sql.NullString) error {
	if !h.perms.Update {
		return ErrPermDenied
	}
	if err := validateTicket(&models.Ticket{Title: title, Description: description}); err != nil {
		return err
	}

	sqlquery, args, _ := psql.
		Update("tickets").
		Set("title", title).
		Set("description", description).
		Set("image_url", imageURL).
		Where(sq.Eq{"id": h.id}).
		ToSql()

	_, err := h.sharedDB.Exec(ctx, sqlquery, args...)
	return err
}

// Delete removes the ticket and its review, if any, in one
// transaction.
func (h TicketH) Delete(ctx context.Context) error {
	if !h.perms.Delete {
		return ErrPermDenied
	}
	return execTx(ctx, h.sharedDB, func(ctx context.Context, tx DBTX) error {
		sqlquery, args, _ := psql.
			Delete("reviews").
			Where(sq.Eq{"ticket_id": h.id}).
			ToSql()
		if _, err := tx.Exec(ctx, sqlquery, args...); err != nil {
			return err
		}

		sqlquery, args, _ = psql.
			Delete("tickets").
			Where(sq.Eq{"id": h.id}).
			ToSql()
		_, err := tx.Exec(ctx, sqlquery, args...)
		return err
	})
}

func validateTicket(ticket *models.Ticket) error {
	if len(ticket.Title) == 0 || len(ticket.Title) > LimitMaxTitleLen {
		return models.ErrInvalidFormat
	}
	if len(ticket.Description) > LimitMaxContentLen {
		return models.ErrInvalidFormat
	}
	return nil
}

func insertTicket(ctx context.Context, db DBTX, ticket *models.Ticket) error {
	sqlquery, args, _ := psql.
		Insert("tickets").
		Columns("owner_id", "title", "description", "image_url").
		Values(ticket.OwnerID, ticket.Title, ticket.Description, ticket.ImageURL).
		Suffix("RETURNING id, created_at").
		ToSql()

	row := db.QueryRow(ctx, sqlquery, args...)
	return row.Scan(&ticket.ID, &ticket.CreatedAt)
}
