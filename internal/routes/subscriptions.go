package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gitlab.com/avoncourt/revue/internal/models"
)

func (routes *Routes) SubscriptionsRouter(r chi.Router) {
	r.Get("/", routes.AppHandler(routes.GetSubscriptions))
	r.Post("/search", routes.AppHandler(routes.PostSearchUser))
	r.Post("/follow", routes.AppHandler(routes.PostFollow))
	r.Post("/unfollow", routes.AppHandler(routes.PostUnfollow))
}

type subscriptionsData struct {
	Following  []models.FollowView
	Followers  []models.FollowView
	Candidates []models.UserView
	Searched   *models.User
	Message    string
}

func (routes *Routes) renderSubscriptions(w http.ResponseWriter, r *http.Request, searched *models.User, message string) AppError {
	userH := GetUserH(r)

	following, err := userH.ListFollowing(r.Context())
	if err != nil {
		return &ErrInternal{Cause: err}
	}
	followers, err := userH.ListFollowers(r.Context())
	if err != nil {
		return &ErrInternal{Cause: err}
	}
	candidates, err := userH.ListFollowCandidates(r.Context())
	if err != nil {
		return &ErrInternal{Cause: err}
	}

	routes.tmpls.RenderHTML(w, "subscriptions", subscriptionsData{
		Following:  following,
		Followers:  followers,
		Candidates: candidates,
		Searched:   searched,
		Message:    message,
	})
	return nil
}

func (routes *Routes) GetSubscriptions(w http.ResponseWriter, r *http.Request) AppError {
	return routes.renderSubscriptions(w, r, nil, "")
}

// PostSearchUser re-renders the page with the first matching user and
// a follow button. The search itself doesn't hide superusers; only
// following them is refused.
func (routes *Routes) PostSearchUser(w http.ResponseWriter, r *http.Request) AppError {
	query := r.FormValue("search")

	searched, err := routes.db.SearchUser(r.Context(), query)
	if errors.Is(err, models.ErrUserNotFound) {
		return routes.renderSubscriptions(w, r, nil, "User does not exist. Please choose another name.")
	}
	if errors.Is(err, models.ErrInvalidFormat) {
		return routes.renderSubscriptions(w, r, nil, "Please enter a name, 50 characters max.")
	}
	if err != nil {
		return &ErrInternal{Cause: err}
	}
	return routes.renderSubscriptions(w, r, searched, "")
}

func (routes *Routes) PostFollow(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)
	target := r.FormValue("follow")

	err := userH.Follow(r.Context(), target)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return routes.renderSubscriptions(w, r, nil, "User does not exist. Please choose another name.")
	case errors.Is(err, models.ErrSelfFollow):
		return routes.renderSubscriptions(w, r, nil, "You can not follow yourself!")
	case errors.Is(err, models.ErrPrivilegedFollow):
		return routes.renderSubscriptions(w, r, nil, "Please choose an other name to follow!")
	case errors.Is(err, models.ErrAlreadyFollowing):
		return routes.renderSubscriptions(w, r, nil, "You are already following this User.")
	case err != nil:
		return &ErrInternal{Message: "Error following", Cause: err}
	}
	http.Redirect(w, r, "/subscriptions", http.StatusSeeOther)
	return nil
}

func (routes *Routes) PostUnfollow(w http.ResponseWriter, r *http.Request) AppError {
	userH := GetUserH(r)

	targetID, err := strconv.Atoi(r.FormValue("unfollow"))
	if err != nil {
		return &ErrBadRequest{Message: "Unknown user", Cause: err}
	}

	err = userH.Unfollow(r.Context(), targetID)
	if errors.Is(err, models.ErrUserNotFound) {
		return routes.renderSubscriptions(w, r, nil, "User does not exist. Please choose another name.")
	}
	if err != nil {
		return &ErrInternal{Message: "Error unfollowing", Cause: err}
	}
	http.Redirect(w, r, "/subscriptions", http.StatusSeeOther)
	return nil
}
