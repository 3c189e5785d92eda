package routes

import (
	"errors"
	"net/http"

	"gitlab.com/avoncourt/revue/internal/models"
)

type authFormData struct {
	Error    string
	Username string
}

func (routes *Routes) GetSignup(w http.ResponseWriter, r *http.Request) AppError {
	routes.tmpls.RenderHTML(w, "signup", authFormData{})
	return nil
}

func (routes *Routes) PostSignup(w http.ResponseWriter, r *http.Request) AppError {
	name := r.FormValue("username")
	passwd := r.FormValue("password")

	user := &models.User{Name: name}
	_, err := routes.db.CreateUser(r.Context(), user, passwd)
	if err != nil {
		msg := signupErrMessage(err)
		if msg == "" {
			return &ErrInternal{Cause: err}
		}
		routes.tmpls.RenderHTML(w, "signup", authFormData{Error: msg, Username: name})
		return nil
	}

	// Sign the fresh account in right away
	token, err := routes.db.Login(r.Context(), name, passwd)
	if err != nil {
		return &ErrInternal{Cause: err}
	}
	setSessionCookie(w, token)
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
	return nil
}

func signupErrMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrUsernameAlreadyUsed):
		return "This username is already taken."
	case errors.Is(err, models.ErrInvalidFormat):
		return "Usernames are made of letters, digits and underscores, 50 characters max."
	case errors.Is(err, models.ErrWeakPasswd):
		return "Passwords need 8 to 64 characters mixing letters, digits and symbols."
	default:
		return ""
	}
}

func (routes *Routes) GetLogin(w http.ResponseWriter, r *http.Request) AppError {
	routes.tmpls.RenderHTML(w, "login", authFormData{})
	return nil
}

func (routes *Routes) PostLogin(w http.ResponseWriter, r *http.Request) AppError {
	name := r.FormValue("username")
	passwd := r.FormValue("password")

	token, err := routes.db.Login(r.Context(), name, passwd)
	if err != nil {
		// Wrong name and wrong password look identical on purpose
		routes.tmpls.RenderHTML(w, "login", authFormData{Error: "Invalid username or password!", Username: name})
		return nil
	}
	setSessionCookie(w, token)
	http.Redirect(w, r, "/feed", http.StatusSeeOther)
	return nil
}

func (routes *Routes) GetLogout(w http.ResponseWriter, r *http.Request) AppError {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		if err := routes.db.Signout(r.Context(), cookie.Value); err != nil {
			return &ErrInternal{Cause: err}
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return nil
}
