package models

import (
	"sort"
	"time"
)

type FeedKind string

const (
	FeedKindReview FeedKind = "REVIEW"
	FeedKindTicket FeedKind = "TICKET"
)

// FeedItem is one entry of the aggregated timeline. Exactly one of
// Review and Ticket is set, matching Kind.
type FeedItem struct {
	Kind      FeedKind
	CreatedAt time.Time
	Review    *ReviewView
	Ticket    *TicketView
}

// MergeFeed merges visible reviews and review-less tickets into a single
// timeline, most recent first. The sort is stable over the
// reviews-then-tickets input, so items with equal timestamps keep a
// deterministic order.
func MergeFeed(reviews []ReviewView, tickets []TicketView) []FeedItem {
	feed := make([]FeedItem, 0, len(reviews)+len(tickets))
	for i := range reviews {
		feed = append(feed, FeedItem{
			Kind:      FeedKindReview,
			CreatedAt: reviews[i].CreatedAt,
			Review:    &reviews[i],
		})
	}
	for i := range tickets {
		feed = append(feed, FeedItem{
			Kind:      FeedKindTicket,
			CreatedAt: tickets[i].CreatedAt,
			Ticket:    &tickets[i],
		})
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	return feed
}
