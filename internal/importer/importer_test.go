package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/tmdb"
)

type fakeSource struct {
	movies  []tmdb.Movie
	credits map[int64]tmdb.Credits
	people  map[int64]tmdb.Person
	err     error
}

func (f *fakeSource) PopularMovies(_ context.Context, limit int) ([]tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.movies) > limit {
		return f.movies[:limit], nil
	}
	return f.movies, nil
}

func (f *fakeSource) Credits(_ context.Context, id int64) (tmdb.Credits, error) {
	c, ok := f.credits[id]
	if !ok {
		return tmdb.Credits{}, &tmdb.StatusError{Endpoint: "movie/credits", Status: 404}
	}
	return c, nil
}

func (f *fakeSource) Person(_ context.Context, id int64) (tmdb.Person, error) {
	p, ok := f.people[id]
	if !ok {
		return tmdb.Person{}, &tmdb.StatusError{Endpoint: "person", Status: 404}
	}
	return p, nil
}

func (f *fakeSource) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://img.example" + path
}

// txStore stages writes and only keeps them when fn succeeds.
type txStore struct {
	authors    map[int64]model.Author
	films      map[int64]model.Film
	failFilm   int64
	failAuthor int64
	committed  int
}

func newTxStore() *txStore {
	return &txStore{authors: map[int64]model.Author{}, films: map[int64]model.Film{}}
}

type stagedWriter struct {
	s       *txStore
	authors map[int64]model.Author
	films   map[int64]model.Film
}

func (w *stagedWriter) UpsertTMDBAuthor(_ context.Context, a model.Author) (uint64, bool, error) {
	if *a.TMDBID == w.s.failAuthor {
		return 0, false, fmt.Errorf("user %q: %w", a.Username, repository.ErrConflict)
	}
	_, existed := w.authors[*a.TMDBID]
	a.ID = uint64(*a.TMDBID)
	w.authors[*a.TMDBID] = a
	return a.ID, !existed, nil
}

func (w *stagedWriter) UpsertTMDBFilm(_ context.Context, f model.Film) (uint64, bool, error) {
	if *f.TMDBID == w.s.failFilm {
		return 0, false, errors.New("boom")
	}
	_, existed := w.films[*f.TMDBID]
	f.ID = uint64(*f.TMDBID)
	w.films[*f.TMDBID] = f
	return f.ID, !existed, nil
}

func (s *txStore) RunInTx(ctx context.Context, fn func(w repository.TMDBWriter) error) error {
	w := &stagedWriter{s: s, authors: map[int64]model.Author{}, films: map[int64]model.Film{}}
	for k, v := range s.authors {
		w.authors[k] = v
	}
	for k, v := range s.films {
		w.films[k] = v
	}
	if err := fn(w); err != nil {
		return err
	}
	s.authors, s.films = w.authors, w.films
	s.committed++
	return nil
}

type events struct{ got []queue.Event }

func (e *events) Publish(_ context.Context, ev queue.Event) error {
	e.got = append(e.got, ev)
	return nil
}

func sampleSource() *fakeSource {
	return &fakeSource{
		movies: []tmdb.Movie{
			{ID: 1, Title: "Dune", ReleaseDate: "2021-09-15", PosterPath: "/dune.jpg", Overview: "Sand."},
			{ID: 2, Title: "Arrival", ReleaseDate: "2016-11-09"},
			{ID: 3, Title: "", ReleaseDate: "2020-01-01"},
			{ID: 5, Title: "Bad date", ReleaseDate: "soon"},
			{ID: 4, Title: "No director", ReleaseDate: "2019-01-01"},
		},
		credits: map[int64]tmdb.Credits{
			1: {ID: 1, Crew: []tmdb.CrewMember{{ID: 50, Name: "Denis Villeneuve", Job: "Director"}}},
			2: {ID: 2, Crew: []tmdb.CrewMember{{ID: 50, Name: "Denis Villeneuve", Job: "Director"}}},
			4: {ID: 4, Crew: []tmdb.CrewMember{{ID: 60, Name: "Someone", Job: "Writer"}}},
		},
		people: map[int64]tmdb.Person{
			50: {ID: 50, Name: "Denis Villeneuve", Birthday: "1967-10-03", Biography: "Québécois.", ProfilePath: "/dv.jpg"},
		},
	}
}

func TestRun_CommitsValidItems(t *testing.T) {
	store := newTxStore()
	ev := &events{}
	im := New(sampleSource(), store, ev, nil, zerolog.Nop())

	sum, err := im.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 5, sum.Fetched)
	assert.Equal(t, 2, sum.FilmsCreated)
	assert.Equal(t, 1, sum.AuthorsCreated)
	require.Len(t, sum.Skipped, 3)
	assert.Equal(t, "missing required data", sum.Skipped[0].Reason)
	assert.Equal(t, "invalid release date", sum.Skipped[1].Reason)
	assert.Equal(t, "no director found", sum.Skipped[2].Reason)

	a := store.authors[50]
	assert.Equal(t, "tmdb_50", a.Username)
	assert.Equal(t, "Denis", a.FirstName)
	assert.Equal(t, "Villeneuve", a.LastName)
	require.NotNil(t, a.DateOfBirth)
	assert.Equal(t, "https://img.example/dv.jpg", a.PhotoURL)

	f := store.films[1]
	assert.Equal(t, model.FilmPublished, f.Status)
	assert.Equal(t, model.SourceTMDB, f.Source)
	assert.Equal(t, uint64(50), f.AuthorID)
	assert.Equal(t, "https://img.example/dune.jpg", f.PosterURL)

	require.Len(t, ev.got, 1)
	assert.Equal(t, queue.EventImportCompleted, ev.got[0].Type)

	sum, err = im.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.FilmsUpdated)
	assert.Zero(t, sum.FilmsCreated)
	assert.Len(t, store.films, 2)
}

func TestRun_RollsBackOnWriteFailure(t *testing.T) {
	store := newTxStore()
	store.failFilm = 2
	ev := &events{}
	im := New(sampleSource(), store, ev, nil, zerolog.Nop())

	sum, err := im.Run(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Zero(t, sum.Imported())
	assert.Empty(t, store.films, "first film must not survive the rollback")
	assert.Empty(t, store.authors)
	assert.Zero(t, store.committed)
	assert.Empty(t, ev.got)
}

func TestRun_AccountCollisionRollsBack(t *testing.T) {
	store := newTxStore()
	store.failAuthor = 50
	im := New(sampleSource(), store, &events{}, nil, zerolog.Nop())

	_, err := im.Run(context.Background(), 10)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "IMPORT_CONFLICT", ae.Code)
	assert.Empty(t, store.films)
	assert.Zero(t, store.committed)
}

func TestRun_UpstreamFailure(t *testing.T) {
	src := sampleSource()
	src.err = &tmdb.StatusError{Endpoint: "movie/popular", Status: 503}
	im := New(src, newTxStore(), nil, nil, zerolog.Nop())
	_, err := im.Run(context.Background(), 5)
	assert.Equal(t, apperr.KindExternal, apperr.KindOf(err))

	src.err = tmdb.ErrNoAPIKey
	sum, err := im.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, sum.Imported())

	_, err = im.Run(context.Background(), 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "éé", truncate("ééé", 2))
	assert.Equal(t, "abc", truncate("abc", 5))
}
