// Command importer pulls popular movies and their directors from TMDb into
// the catalogue in a single transaction.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/database"
	"github.com/mehdibennis/cinema/internal/importer"
	"github.com/mehdibennis/cinema/internal/logging"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/tmdb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	limit := flag.Int("limit", cfg.TMDB.ImportLimit, "number of popular movies to import")
	flag.Parse()

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
	if rdb != nil {
		defer rdb.Close()
	}
	var events importer.Publisher = queue.NopPublisher{}
	if cfg.Queue.Enabled {
		events = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, log)
	}

	imp := importer.New(
		tmdb.NewClient(cfg.TMDB, log),
		repository.NewImportRepo(db),
		events,
		cache.NewVersions(rdb, cfg.Cache.Prefix, cfg.Cache.InvalidateOnWrite, log),
		log,
	)
	sum, err := imp.Run(ctx, *limit)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(sum); encErr != nil {
		log.Error().Err(encErr).Msg("print summary")
	}
	if err != nil {
		log.Error().Err(err).Msg("import failed")
		os.Exit(1)
	}
}
