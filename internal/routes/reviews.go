package routes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gitlab.com/avoncourt/revue/internal/models"
)

func (routes *Routes) ReviewsRouter(r chi.Router) {
	r.Get("/new", routes.AppHandler(routes.GetNewReview))
	r.Post("/new", routes.AppHandler(routes.PostNewReview))

	specificReview := r.With(routes.ReviewCtx)
	specificReview.Get("/{reviewID}/edit", routes.AppHandler(routes.GetEditReview))
	specificReview.Post("/{reviewID}/edit", routes.AppHandler(routes.PostEditReview))
	specificReview.Post("/{reviewID}/delete", routes.AppHandler(routes.DeleteReview))
}

func (routes *Routes) ReviewCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userH := GetUserH(r)

		reviewID, err := strconv.Atoi(chi.URLParam(r, "reviewID"))
		if err != nil {
			routes.HandleErr(w, r, models.ErrReviewNotFound)
			return
		}

		reviewH, err := routes.db.GetReviewH(r.Context(), reviewID, userH)
		if err != nil {
			routes.HandleErr(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ReviewHCtxKey, reviewH)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetNewReview is the combined form: a new ticket reviewed on the
// spot.
func (routes *Routes) GetNewReview(w http.ResponseWriter, r *http.Request) AppError {
	routes.tmpls.RenderHTML(w, "newReview", nil)
	return nil
}

func (routes *Routes) PostNewReview(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)

	ticket := &models.Ticket{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		ImageURL:    formNullString(r, "image_url"),
	}
	review := &models.Review{
		Rating:   formRating(r),
		Headline: r.FormValue("headline"),
		Body:     r.FormValue("body"),
	}
	err := routes.db.CreateTicketWithReview(r.Context(), *userH, ticket, review)
	if err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
	return nil
}

func (routes *Routes) GetEditReview(w http.ResponseWriter, r *http.Request) AppError {
	reviewH := GetReviewH(r)

	review, err := reviewH.ReadView(r.Context())
	if err != nil {
		return mapError(err)
	}

	// The ticket form only appears when the reviewer owns the
	// ticket too.
	var ticket *models.TicketView
	if reviewH.CanEditTicket() {
		ticketH, err := routes.db.GetTicketH(r.Context(), reviewH.TicketID(), GetUserH(r))
		if err != nil {
			return mapError(err)
		}
		ticket, err = ticketH.ReadView(r.Context())
		if err != nil {
			return mapError(err)
		}
	}

	routes.tmpls.RenderHTML(w, "editReview", struct {
		Review *models.ReviewView
		Ticket *models.TicketView
	}{review, ticket})
	return nil
}

func (routes *Routes) PostEditReview(w http.ResponseWriter, r *http.Request) AppError {
	reviewH := GetReviewH(r)

	var err error
	if reviewH.CanEditTicket() {
		err = reviewH.UpdateWithTicket(r.Context(),
			formRating(r),
			r.FormValue("headline"),
			r.FormValue("body"),
			r.FormValue("title"),
			r.FormValue("description"),
			formNullString(r, "image_url"),
		)
	} else {
		err = reviewH.Update(r.Context(),
			formRating(r),
			r.FormValue("headline"),
			r.FormValue("body"),
		)
	}
	if err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
	return nil
}

func (routes *Routes) DeleteReview(w http.ResponseWriter, r *http.Request) AppError {
	reviewH := GetReviewH(r)

	if err := reviewH.Delete(r.Context()); err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
	return nil
}
