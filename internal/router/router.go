// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/mehdibennis/cinema/docs"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/handler"
	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/model"
)

// Handlers bundles everything the API routes call.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Films      *handler.FilmHandler
	Authors    *handler.AuthorHandler
	Reviews    *handler.ReviewHandler
	Spectators *handler.SpectatorHandler
	Health     *handler.HealthHandler
}

// Deps are the shared collaborators of the middleware chain. Redis may be
// nil, which disables caching and rate limiting.
type Deps struct {
	Config   config.Config
	Redis    *redis.Client
	Versions middleware.VersionSource
	Log      zerolog.Logger
}

// New builds the Echo instance with every route registered.
func New(d Deps, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = handler.JSONSerializer{}
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: d.Config.Server.CORSOrigins}))
	e.Use(echomw.BodyLimit(d.Config.Server.BodyLimit))

	e.GET("/health", h.Health.Health)
	e.GET("/ready", h.Health.Ready)
	e.GET("/live", h.Health.Live)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api/docs/*", echo.WrapHandler(httpSwagger.Handler(
		httpSwagger.URL("/api/docs/doc.json"),
		httpSwagger.DocExpansion("list"),
	)))

	api := e.Group("/api",
		middleware.OptionalAuth(d.Config.JWT.Secret),
		middleware.RateLimit(d.Config.Rate, d.Redis, d.Log),
	)
	registerAuth(api, h.Auth)
	registerUsers(api, h.Users)
	registerCatalogue(api, d, h)
	registerSpectators(api, d, h.Spectators)
	return e
}

func (d Deps) cached(scope string) echo.MiddlewareFunc {
	return middleware.ResponseCache(d.Config.Cache, d.Redis, d.Versions, scope, d.Log)
}

func registerAuth(api *echo.Group, a *handler.AuthHandler) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.RequireAuth())
	g.GET("/me", a.Me, middleware.RequireAuth())
}

func registerUsers(api *echo.Group, u *handler.UserHandler) {
	g := api.Group("/users", middleware.RequireRole(model.RoleAdmin))
	g.GET("", u.List)
	g.POST("", u.Create)
	g.GET("/:id", u.Get)
	g.DELETE("/:id", u.Delete)
}

func registerCatalogue(api *echo.Group, d Deps, h Handlers) {
	films := api.Group("/films")
	films.GET("", h.Films.List, d.cached(cache.ScopeFilms))
	films.GET("/:id", h.Films.Get, d.cached(cache.ScopeFilms))
	films.POST("", h.Films.Create)
	films.PATCH("/:id", h.Films.Update)
	films.PUT("/:id", h.Films.Update)
	films.DELETE("/:id", h.Films.Delete)
	films.POST("/:id/archive", h.Films.Archive)

	authors := api.Group("/authors")
	authors.GET("", h.Authors.List, d.cached(cache.ScopeAuthors))
	authors.GET("/:id", h.Authors.Get, d.cached(cache.ScopeAuthors))
	authors.POST("", h.Authors.Create)
	authors.PATCH("/:id", h.Authors.Update)
	authors.PUT("/:id", h.Authors.Update)
	authors.DELETE("/:id", h.Authors.Delete)

	reviews := api.Group("/reviews")
	reviews.GET("", h.Reviews.ListFilm, d.cached(cache.ScopeFilmReviews))
	reviews.GET("/:id", h.Reviews.GetFilm, d.cached(cache.ScopeFilmReviews))
	reviews.POST("", h.Reviews.CreateFilm)
	reviews.DELETE("/:id", h.Reviews.DeleteFilm)

	authorReviews := api.Group("/author-reviews")
	authorReviews.GET("", h.Reviews.ListAuthor, d.cached(cache.ScopeAuthorReviews))
	authorReviews.GET("/:id", h.Reviews.GetAuthor, d.cached(cache.ScopeAuthorReviews))
	authorReviews.POST("", h.Reviews.CreateAuthor)
	authorReviews.DELETE("/:id", h.Reviews.DeleteAuthor)
}

// Spectator routes are personal, so only the public listing is cached.
func registerSpectators(api *echo.Group, d Deps, s *handler.SpectatorHandler) {
	g := api.Group("/spectators")
	g.GET("", s.List, d.cached(cache.ScopeSpectators))
	g.GET("/me", s.Me)
	g.PATCH("/me", s.UpdateMe)
	g.PUT("/me", s.UpdateMe)
	g.GET("/favorites", s.Favorites)
	g.POST("/favorites/add", s.AddFavorite)
	g.POST("/favorites/remove", s.RemoveFavorite)
	g.GET("/:id", s.Get, d.cached(cache.ScopeSpectators))
}
