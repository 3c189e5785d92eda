package routes

import (
	"net/http"

	"gitlab.com/avoncourt/revue/internal/models"
)

func (routes *Routes) GetFeed(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)

	posts, err := userH.Feed(r.Context())
	if err != nil {
		return &ErrInternal{Message: "Can't load your feed", Cause: err}
	}

	routes.tmpls.RenderHTML(w, "feed", struct {
		Posts []models.FeedItem
	}{posts})
	return nil
}

// GetPosts shows everything the logged-in user wrote, feed visibility
// aside.
func (routes *Routes) GetPosts(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)

	tickets, err := userH.ListMyTickets(r.Context())
	if err != nil {
		return &ErrInternal{Message: "Can't list your tickets", Cause: err}
	}
	reviews, err := userH.ListMyReviews(r.Context())
	if err != nil {
		return &ErrInternal{Message: "Can't list your reviews", Cause: err}
	}

	routes.tmpls.RenderHTML(w, "posts", struct {
		Tickets []models.TicketView
		Reviews []models.ReviewView
	}{tickets, reviews})
	return nil
}
