package models

import (
	"database/sql"
	"errors"
	"time"
)

var ErrTicketNotFound = errors.New("ticket not found")

type Ticket struct {
	ID          int
	OwnerID     int `db:"owner_id"`
	Title       string
	Description string
	ImageURL    sql.NullString `db:"image_url"`
	CreatedAt   time.Time      `db:"created_at"`
}

type TicketView struct {
	Ticket
	OwnerName string `db:"owner_name"`
}
