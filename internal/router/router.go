// Package router sets up all HTTP routes and middleware chains for the
// clomery API. Reads are public; article and category mutations require a
// live session token.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clomery/internal/handlers"
	"clomery/internal/metrics"
	"clomery/internal/middleware"
)

// Deps are the handler groups and shared services the routes need.
type Deps struct {
	Tokens   middleware.TokenVerifier
	Metrics  *metrics.Metrics
	SignIn   *middleware.RateLimiter
	Views    *middleware.RateLimiter
	Content  *handlers.Content
	Category *handlers.Category
	Account  *handlers.Account
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.RequestID)
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	requireToken := middleware.RequireToken(d.Tokens)

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", d.Content.List)
		r.Get("/{ref}", d.Content.Get)
		r.Get("/{id}/near", d.Content.Near)
		r.With(d.Views.Middleware).Post("/{id}/views", d.Content.Views)

		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/", d.Content.Save)
			r.Post("/{id}/tags", d.Content.AttachTags)
			r.Delete("/{id}/tags/{name}", d.Content.DetachTags)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", d.Category.List)
		r.Get("/{ref}", d.Category.Get)
		r.Get("/{ref}/articles", d.Category.Articles)

		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/", d.Category.Create)
			r.Patch("/{id}", d.Category.Update)
		})
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", d.Category.Tags)
		r.Get("/{name}/articles", d.Category.TagArticles)
	})

	// Account endpoints hand out credentials and must never be cached.
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Post("/signup", d.Account.SignUp)
		r.With(d.SignIn.Middleware).Post("/signin", d.Account.SignIn)
		r.Post("/signout", d.Account.SignOut)
		r.Post("/heartbeat", d.Account.HeartBeat)
		r.With(requireToken).Post("/avatar", d.Account.Avatar)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
