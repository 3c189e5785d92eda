package routes

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gitlab.com/avoncourt/revue/internal/models"
)

func (routes *Routes) TicketsRouter(r chi.Router) {
	r.Get("/new", routes.AppHandler(routes.GetNewTicket))
	r.Post("/new", routes.AppHandler(routes.PostTicket))

	specificTicket := r.With(routes.TicketCtx)
	specificTicket.Get("/{ticketID}/review", routes.AppHandler(routes.GetNewTicketReview))
	specificTicket.Post("/{ticketID}/review", routes.AppHandler(routes.PostTicketReview))
	specificTicket.Get("/{ticketID}/edit", routes.AppHandler(routes.GetEditTicket))
	specificTicket.Post("/{ticketID}/edit", routes.AppHandler(routes.PostEditTicket))
	specificTicket.Post("/{ticketID}/delete", routes.AppHandler(routes.DeleteTicket))
}

func (routes *Routes) TicketCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userH := GetUserH(r)

		ticketID, err := strconv.Atoi(chi.URLParam(r, "ticketID"))
		if err != nil {
			routes.HandleErr(w, r, models.ErrTicketNotFound)
			return
		}

		ticketH, err := routes.db.GetTicketH(r.Context(), ticketID, userH)
		if err != nil {
			routes.HandleErr(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), TicketHCtxKey, ticketH)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetNewTicket is the "ask for a review" form.
func (routes *Routes) GetNewTicket(w http.ResponseWriter, r *http.Request) AppError {
	routes.tmpls.RenderHTML(w, "newTicket", nil)
	return nil
}

func (routes *Routes) PostTicket(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)

	ticket := &models.Ticket{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		ImageURL:    formNullString(r, "image_url"),
	}
	_, err := routes.db.CreateTicket(r.Context(), *userH, ticket)
	if err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
	return nil
}

// GetNewTicketReview shows someone else's (or your own) ticket with a
// blank review form under it.
func (routes *Routes) GetNewTicketReview(w http.ResponseWriter, r *http.Request) AppError {
	ticketH := GetTicketH(r)

	ticket, err := ticketH.ReadView(r.Context())
	if err != nil {
		return mapError(err)
	}
	routes.tmpls.RenderHTML(w, "newTicketReview", struct {
		Ticket *models.TicketView
	}{ticket})
	return nil
}

func (routes *Routes) PostTicketReview(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)
	ticketH := GetTicketH(r)

	review := &models.Review{
		Rating:   formRating(r),
		Headline: r.FormValue("headline"),
		Body:     r.FormValue("body"),
	}
	_, err := routes.db.CreateReview(r.Context(), *userH, ticketH.ID(), review)
	if err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
	return nil
}

func (routes *Routes) GetEditTicket(w http.ResponseWriter, r *http.Request) AppError {
	ticketH := GetTicketH(r)
	if !ticketH.CanEdit() {
		return &ErrForbidden{Message: "Only the ticket's owner can edit it"}
	}

	ticket, err := ticketH.ReadView(r.Context())
	if err != nil {
		return mapError(err)
	}
	routes.tmpls.RenderHTML(w, "editTicket", struct {
		Ticket *models.TicketView
	}{ticket})
	return nil
}

func (routes *Routes) PostEditTicket(w http.ResponseWriter, r *http.Request) AppError {
	ticketH := GetTicketH(r)

	err := ticketH.Update(r.Context(),
		r.FormValue("title"),
		r.FormValue("description"),
		formNullString(r, "image_url"),
	)
	if err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
	return nil
}

// DeleteTicket removes the ticket and its review with it.
func (routes *Routes) DeleteTicket(w http.ResponseWriter, r *http.Request) AppError {
	ticketH := GetTicketH(r)

	if err := ticketH.Delete(r.Context()); err != nil {
		return mapError(err)
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
	return nil
}

func formNullString(r *http.Request, field string) sql.NullString {
	v := r.FormValue(field)
	return sql.NullString{String: v, Valid: v != ""}
}

// formRating parses the rating radio button. Out-of-range garbage
// comes back as -1 and fails validation downstream.
func formRating(r *http.Request) int {
	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil {
		return -1
	}
	return rating
}
