// Package importer pulls popular movies and their directors from TMDb into
// the catalogue. A run is all-or-nothing: every film and author it writes
// lands in one transaction.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/metrics"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/tmdb"
	"github.com/mehdibennis/cinema/internal/validation"
)

const maxBioLen = 1000

// Source is the slice of the TMDb client the importer uses.
type Source interface {
	PopularMovies(ctx context.Context, limit int) ([]tmdb.Movie, error)
	Credits(ctx context.Context, movieID int64) (tmdb.Credits, error)
	Person(ctx context.Context, personID int64) (tmdb.Person, error)
	ImageURL(path string) string
}

// Store runs fn inside a single transaction.
type Store interface {
	RunInTx(ctx context.Context, fn func(w repository.TMDBWriter) error) error
}

type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, scopes ...string)
}

// Skipped is a movie left out of the run and why.
type Skipped struct {
	TMDBID int64  `json:"tmdb_id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Summary reports what a committed run changed.
type Summary struct {
	RunID          string    `json:"run_id"`
	Fetched        int       `json:"fetched"`
	FilmsCreated   int       `json:"films_created"`
	FilmsUpdated   int       `json:"films_updated"`
	AuthorsCreated int       `json:"authors_created"`
	AuthorsUpdated int       `json:"authors_updated"`
	Skipped        []Skipped `json:"skipped"`
}

func (s Summary) Imported() int { return s.FilmsCreated + s.FilmsUpdated }

type Importer struct {
	src    Source
	store  Store
	events Publisher
	cache  Invalidator
	log    zerolog.Logger
}

func New(src Source, store Store, events Publisher, inv Invalidator, log zerolog.Logger) *Importer {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &Importer{src: src, store: store, events: events, cache: inv, log: log}
}

// movieFields are the provider fields a film cannot be created without.
type movieFields struct {
	ID          int64  `validate:"gt=0"`
	Title       string `validate:"required,max=255"`
	ReleaseDate string `validate:"required,datetime=2006-01-02"`
}

// item is a movie with everything needed to write it.
type item struct {
	film   model.Film
	author model.Author
}

// Run imports up to limit popular movies. Network calls happen before the
// transaction opens; a storage failure rolls the whole batch back.
func (im *Importer) Run(ctx context.Context, limit int) (Summary, error) {
	const op = "importer.Importer.Run"
	runID := uuid.NewString()
	log := im.log.With().Str("op", op).Str("run_id", runID).Int("limit", limit).Logger()
	if limit < 1 {
		return Summary{RunID: runID}, apperr.Validation("limit", "Ensure this value is greater than or equal to 1.")
	}

	movies, err := im.src.PopularMovies(ctx, limit)
	if err != nil {
		if errors.Is(err, tmdb.ErrNoAPIKey) {
			log.Warn().Msg("TMDB_API_KEY is not set, nothing to import")
			return Summary{RunID: runID, Skipped: []Skipped{}}, nil
		}
		return Summary{RunID: runID}, apperr.External("Could not fetch popular movies.", err)
	}
	sum := Summary{RunID: runID, Fetched: len(movies), Skipped: []Skipped{}}
	log.Info().Int("fetched", len(movies)).Msg("fetched popular movies")

	items := make([]item, 0, len(movies))
	for _, m := range movies {
		it, reason, err := im.prepare(ctx, m)
		if err != nil {
			return Summary{RunID: runID}, err
		}
		if reason != "" {
			log.Warn().Int64("tmdb_id", m.ID).Str("title", m.Title).Str("reason", reason).Msg("movie skipped")
			sum.Skipped = append(sum.Skipped, Skipped{TMDBID: m.ID, Title: m.Title, Reason: reason})
			metrics.ImportItems.WithLabelValues("skipped").Inc()
			continue
		}
		items = append(items, it)
	}

	var written Summary
	err = im.store.RunInTx(ctx, func(w repository.TMDBWriter) error {
		written = Summary{}
		authors := map[int64]uint64{}
		for _, it := range items {
			tid := *it.author.TMDBID
			authorID, ok := authors[tid]
			if !ok {
				id, created, err := w.UpsertTMDBAuthor(ctx, it.author)
				if err != nil {
					return fmt.Errorf("author %d: %w", tid, err)
				}
				authors[tid], authorID = id, id
				if created {
					written.AuthorsCreated++
				} else {
					written.AuthorsUpdated++
				}
			}
			it.film.AuthorID = authorID
			_, created, err := w.UpsertTMDBFilm(ctx, it.film)
			if err != nil {
				return fmt.Errorf("film %d: %w", *it.film.TMDBID, err)
			}
			if created {
				written.FilmsCreated++
			} else {
				written.FilmsUpdated++
			}
		}
		return nil
	})
	if err != nil {
		metrics.ImportItems.WithLabelValues("failed").Add(float64(len(items)))
		log.Error().Err(err).Msg("import rolled back")
		if errors.Is(err, repository.ErrConflict) {
			ae := apperr.Conflict("IMPORT_CONFLICT", "An imported director collides with an existing account.")
			ae.Err = fmt.Errorf("%s: %w", op, err)
			return sum, ae
		}
		return sum, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	sum.FilmsCreated, sum.FilmsUpdated = written.FilmsCreated, written.FilmsUpdated
	sum.AuthorsCreated, sum.AuthorsUpdated = written.AuthorsCreated, written.AuthorsUpdated
	metrics.ImportItems.WithLabelValues("imported").Add(float64(sum.Imported()))

	if im.cache != nil {
		im.cache.Invalidate(context.WithoutCancel(ctx), cache.ScopeFilms, cache.ScopeAuthors)
	}
	ev := queue.NewEvent(queue.EventImportCompleted, 0, map[string]any{
		"run_id":        sum.RunID,
		"fetched":       sum.Fetched,
		"films_created": sum.FilmsCreated,
		"films_updated": sum.FilmsUpdated,
		"skipped":       len(sum.Skipped),
	})
	if err := im.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Debug().Err(err).Msg("event dropped")
	}
	log.Info().Int("imported", sum.Imported()).Int("skipped", len(sum.Skipped)).Msg("import committed")
	return sum, nil
}

// prepare validates one movie and resolves its director. A non-empty reason
// means the movie is skipped; an error aborts the run.
func (im *Importer) prepare(ctx context.Context, m tmdb.Movie) (item, string, error) {
	title := strings.TrimSpace(m.Title)
	fields := movieFields{ID: m.ID, Title: title, ReleaseDate: m.ReleaseDate}
	if err := validation.Validator().Struct(fields); err != nil {
		var verrs govalidator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "datetime" {
			return item{}, "invalid release date", nil
		}
		return item{}, "missing required data", nil
	}
	release, _ := time.Parse("2006-01-02", m.ReleaseDate)
	if err := ctx.Err(); err != nil {
		return item{}, "", err
	}

	credits, err := im.src.Credits(ctx, m.ID)
	if err != nil {
		return item{}, "credits unavailable", nil
	}
	director, ok := credits.Director()
	if !ok || director.ID == 0 || strings.TrimSpace(director.Name) == "" {
		return item{}, "no director found", nil
	}

	author := im.author(ctx, director)
	tid := m.ID
	film := model.Film{
		Title:       title,
		Description: m.Overview,
		ReleaseDate: &release,
		Evaluation:  model.EvaluationG,
		Status:      model.FilmPublished,
		Source:      model.SourceTMDB,
		TMDBID:      &tid,
		PosterURL:   im.src.ImageURL(m.PosterPath),
	}
	return item{film: film, author: author}, "", nil
}

// author builds the author record for a director. Person details are
// optional; without them the author keeps only its name.
func (im *Importer) author(ctx context.Context, d tmdb.CrewMember) model.Author {
	username := model.ImportedUsernamePrefix + strconv.FormatInt(d.ID, 10)
	first, last, _ := strings.Cut(strings.TrimSpace(d.Name), " ")
	tid := d.ID
	a := model.Author{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		TMDBID:    &tid,
		Source:    model.SourceTMDB,
		PhotoURL:  im.src.ImageURL(d.ProfilePath),
	}
	p, err := im.src.Person(ctx, d.ID)
	if err != nil {
		im.log.Warn().Err(err).Int64("person_id", d.ID).Msg("person details unavailable")
		return a
	}
	if dob, err := time.Parse("2006-01-02", p.Birthday); err == nil {
		a.DateOfBirth = &dob
	}
	a.Bio = truncate(p.Biography, maxBioLen)
	if p.ProfilePath != "" {
		a.PhotoURL = im.src.ImageURL(p.ProfilePath)
	}
	return a
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
