package models

import (
	"errors"
	"time"
)

const (
	RatingMin = 0
	RatingMax = 5
)

var (
	ErrBadRating       = errors.New("rating out of range")
	ErrAlreadyReviewed = errors.New("this ticket already has a review")
	ErrReviewNotFound  = errors.New("review not found")
)

type Review struct {
	ID        int
	TicketID  int `db:"ticket_id"`
	AuthorID  int `db:"author_id"`
	Rating    int
	Headline  string
	Body      string
	CreatedAt time.Time `db:"created_at"`
}

type ReviewView struct {
	Review
	AuthorName  string `db:"author_name"`
	TicketTitle string `db:"ticket_title"`
	TicketOwner string `db:"ticket_owner"`
}

func ValidRating(rating int) bool {
	return rating >= RatingMin && rating <= RatingMax
}
