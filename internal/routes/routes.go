package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/avoncourt/revue/internal/db"
	"gitlab.com/avoncourt/revue/internal/models"
	"gitlab.com/avoncourt/revue/internal/render"
	"gitlab.com/avoncourt/revue/web"
)

const sessionCookie = "token"

type ctxKey int

const (
	UserHCtxKey ctxKey = iota
	TicketHCtxKey
	ReviewHCtxKey
)

type Routes struct {
	envConfig *models.EnvConfig
	db        *db.SharedDB
	tmpls     *render.Templates
	logger    zerolog.Logger
}

func NewRouter(config *models.EnvConfig, database *db.SharedDB, logger zerolog.Logger, tmpls *render.Templates) chi.Router {
	routes := &Routes{
		envConfig: config,
		db:        database,
		tmpls:     tmpls,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(routes.UserCtx)

	r.Handle("/static/*", http.FileServer(web.FS))

	r.Get("/", routes.AppHandler(routes.GetHome))
	r.Get("/signup", routes.AppHandler(routes.GetSignup))
	r.Post("/signup", routes.AppHandler(routes.PostSignup))
	r.Get("/login", routes.AppHandler(routes.GetLogin))
	r.Post("/login", routes.AppHandler(routes.PostLogin))
	r.Get("/logout", routes.AppHandler(routes.GetLogout))

	loggedIn := r.With(routes.EnforceCtx(UserHCtxKey))
	loggedIn.Get("/feed", routes.AppHandler(routes.GetFeed))
	loggedIn.Get("/posts", routes.AppHandler(routes.GetPosts))
	loggedIn.Route("/tickets", routes.TicketsRouter)
	loggedIn.Route("/reviews", routes.ReviewsRouter)
	loggedIn.Route("/subscriptions", routes.SubscriptionsRouter)

	return r
}

// AppError is what every handler returns instead of writing error
// responses itself.
type AppError interface {
	error
	Code() int
	Text() string
}

type ErrInternal struct {
	Message string
	Cause   error
}

func (e *ErrInternal) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Text()
}
func (e *ErrInternal) Code() int { return http.StatusInternalServerError }
func (e *ErrInternal) Text() string {
	if e.Message == "" {
		return "Internal server error"
	}
	return e.Message
}

type ErrNotFound struct {
	Thing string
	Cause error
}

func (e *ErrNotFound) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Text()
}
func (e *ErrNotFound) Code() int { return http.StatusNotFound }
func (e *ErrNotFound) Text() string {
	if e.Thing == "" {
		return "Not found"
	}
	return "Can't find " + e.Thing
}

type ErrForbidden struct {
	Message string
	Cause   error
}

func (e *ErrForbidden) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Text()
}
func (e *ErrForbidden) Code() int { return http.StatusForbidden }
func (e *ErrForbidden) Text() string {
	if e.Message == "" {
		return "You can't do that"
	}
	return e.Message
}

type ErrBadRequest struct {
	Message string
	Cause   error
}

func (e *ErrBadRequest) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Text()
}
func (e *ErrBadRequest) Code() int { return http.StatusBadRequest }
func (e *ErrBadRequest) Text() string {
	if e.Message == "" {
		return "Bad request"
	}
	return e.Message
}

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}
		hlog.FromRequest(r).
			Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(err).
			Msg(err.Text())

		w.WriteHeader(err.Code())
		routes.tmpls.RenderHTML(w, "error", struct {
			Code    int
			Message string
		}{err.Code(), err.Text()})
	}
}

// HandleErr translates db layer sentinels into the AppError taxonomy
// and renders them. For use inside Ctx middlewares.
func (routes *Routes) HandleErr(w http.ResponseWriter, r *http.Request, err error) {
	routes.AppHandler(func(w http.ResponseWriter, r *http.Request) AppError {
		return mapError(err)
	})(w, r)
}

func mapError(err error) AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrUserNotFound):
		return &ErrNotFound{Thing: "user", Cause: err}
	case errors.Is(err, models.ErrTicketNotFound):
		return &ErrNotFound{Thing: "ticket", Cause: err}
	case errors.Is(err, models.ErrReviewNotFound):
		return &ErrNotFound{Thing: "review", Cause: err}
	case errors.Is(err, db.ErrPermDenied), errors.Is(err, models.ErrPrivilegedFollow):
		return &ErrForbidden{Message: err.Error(), Cause: err}
	case errors.Is(err, models.ErrInvalidFormat),
		errors.Is(err, models.ErrBadRating),
		errors.Is(err, models.ErrSelfFollow),
		errors.Is(err, models.ErrAlreadyFollowing),
		errors.Is(err, models.ErrAlreadyReviewed),
		errors.Is(err, models.ErrWeakPasswd),
		errors.Is(err, models.ErrUsernameAlreadyUsed):
		return &ErrBadRequest{Message: err.Error(), Cause: err}
	default:
		return &ErrInternal{Cause: err}
	}
}

// UserCtx resolves the session cookie to a user handle, if there is
// one. Pages decide themselves whether they require it.
func (routes *Routes) UserCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		userH, err := routes.db.GetUserH(r.Context(), cookie.Value)
		if err != nil {
			// Stale token: forget it
			clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), UserHCtxKey, &userH)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (routes *Routes) EnforceCtx(key ctxKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Context().Value(key) == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserH(r *http.Request) *db.UserH {
	userH, _ := r.Context().Value(UserHCtxKey).(*db.UserH)
	return userH
}
func GetTicketH(r *http.Request) *db.TicketH {
	ticketH, _ := r.Context().Value(TicketHCtxKey).(*db.TicketH)
	return ticketH
}
func GetReviewH(r *http.Request) *db.ReviewH {
	reviewH, _ := r.Context().Value(ReviewHCtxKey).(*db.ReviewH)
	return reviewH
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (routes *Routes) GetHome(w http.ResponseWriter, r *http.Request) AppError {
	if GetUserH(r) != nil {
		http.Redirect(w, r, "/feed", http.StatusSeeOther)
		return nil
	}
	routes.tmpls.RenderHTML(w, "home", nil)
	return nil
}
