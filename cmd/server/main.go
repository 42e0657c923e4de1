package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/database"
	"github.com/mehdibennis/cinema/internal/handler"
	"github.com/mehdibennis/cinema/internal/logging"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/router"
	"github.com/mehdibennis/cinema/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log)

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("apply schema")
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable, caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	versions := cache.NewVersions(rdb, cfg.Cache.Prefix, cfg.Cache.InvalidateOnWrite, log)

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Queue.Enabled {
		events = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, log)
		if cfg.Queue.Consume {
			consumer := &queue.ActivityConsumer{URL: cfg.Queue.URL, Queue: cfg.Queue.Name, LogPath: cfg.Queue.ActivityLog, Log: log}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("activity consumer stopped")
				}
			}()
		}
	}

	films := repository.NewFilmRepo(db)
	authors := repository.NewAuthorRepo(db)
	reviews := repository.NewReviewRepo(db)
	spectators := repository.NewSpectatorRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(users, tokens, cfg.JWT, log)),
		Users:      handler.NewUserHandler(service.NewUserService(users, cfg.JWT.BcryptCost, versions, log)),
		Films:      handler.NewFilmHandler(service.NewFilmService(films, authors, events, versions, log)),
		Authors:    handler.NewAuthorHandler(service.NewAuthorService(authors, films, users, events, versions, log)),
		Reviews:    handler.NewReviewHandler(service.NewReviewService(reviews, films, authors, events, versions, log)),
		Spectators: handler.NewSpectatorHandler(service.NewSpectatorService(spectators, films, events, versions, log)),
		Health:     handler.NewHealthHandler(db, rdb),
	}
	e := router.New(router.Deps{Config: cfg, Redis: rdb, Versions: versions, Log: log}, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
