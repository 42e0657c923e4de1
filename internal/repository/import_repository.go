package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mehdibennis/cinema/internal/database"
	"github.com/mehdibennis/cinema/internal/model"
)

// TMDBWriter upserts provider records keyed by their provider id. All calls
// made through one writer belong to the same transaction.
type TMDBWriter interface {
	UpsertTMDBAuthor(ctx context.Context, a model.Author) (id uint64, created bool, err error)
	UpsertTMDBFilm(ctx context.Context, f model.Film) (id uint64, created bool, err error)
}

// ImportRepo runs import batches in a single transaction.
type ImportRepo struct{ DB *sql.DB }

func NewImportRepo(db *sql.DB) *ImportRepo { return &ImportRepo{DB: db} }

// RunInTx commits only if fn returns nil; any error rolls back every upsert.
func (r *ImportRepo) RunInTx(ctx context.Context, fn func(w TMDBWriter) error) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		return fn(&tmdbTxWriter{tx: tx})
	})
}

type tmdbTxWriter struct{ tx *sql.Tx }

// unusablePassword can never match a bcrypt comparison, so imported
// accounts cannot log in until an admin sets a password.
const unusablePassword = "!unusable"

const reusableUserSQL = `SELECT u.id, u.role,
	EXISTS (SELECT 1 FROM authors a WHERE a.user_id = u.id),
	EXISTS (SELECT 1 FROM spectators s WHERE s.user_id = u.id)
FROM users u WHERE u.username = ?`

// UpsertTMDBAuthor finds the author by tmdb_id, else creates the backing
// user and the author profile. An existing user with the same username is
// reused only when it is an author account with no profile yet; anything
// else yields ErrConflict.
func (w *tmdbTxWriter) UpsertTMDBAuthor(ctx context.Context, a model.Author) (uint64, bool, error) {
	if a.TMDBID == nil {
		return 0, false, errors.New("tmdb author without tmdb id")
	}
	var authorID, userID uint64
	err := w.tx.QueryRowContext(ctx, "SELECT id, user_id FROM authors WHERE tmdb_id = ?", *a.TMDBID).Scan(&authorID, &userID)
	switch {
	case err == nil:
		if _, err := w.tx.ExecContext(ctx,
			"UPDATE authors SET date_of_birth=?, bio=?, photo_url=?, source=? WHERE id=?",
			nullTime(a.DateOfBirth), a.Bio, a.PhotoURL, string(model.SourceTMDB), authorID); err != nil {
			return 0, false, classify(err)
		}
		if _, err := w.tx.ExecContext(ctx, "UPDATE users SET first_name=?, last_name=? WHERE id=?",
			a.FirstName, a.LastName, userID); err != nil {
			return 0, false, classify(err)
		}
		return authorID, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("lookup author: %w", err)
	}

	var (
		role                    string
		hasAuthor, hasSpectator bool
	)
	err = w.tx.QueryRowContext(ctx, reusableUserSQL, a.Username).Scan(&userID, &role, &hasAuthor, &hasSpectator)
	switch {
	case err == nil:
		if role != string(model.RoleAuthor) || hasAuthor || hasSpectator {
			return 0, false, fmt.Errorf("user %q is not a bare author account: %w", a.Username, ErrConflict)
		}
	case errors.Is(err, sql.ErrNoRows):
		res, err := w.tx.ExecContext(ctx,
			"INSERT INTO users (username, email, password_hash, first_name, last_name, role, is_active) VALUES (?,?,?,?,?,?,?)",
			a.Username, a.Email, unusablePassword, a.FirstName, a.LastName, string(model.RoleAuthor), true)
		if err != nil {
			return 0, false, classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		userID = uint64(id)
	case err != nil:
		return 0, false, fmt.Errorf("lookup user: %w", err)
	}

	res, err := w.tx.ExecContext(ctx,
		"INSERT INTO authors (user_id, date_of_birth, bio, tmdb_id, source, photo_url) VALUES (?,?,?,?,?,?)",
		userID, nullTime(a.DateOfBirth), a.Bio, *a.TMDBID, string(model.SourceTMDB), a.PhotoURL)
	if err != nil {
		return 0, false, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return uint64(id), true, nil
}

// UpsertTMDBFilm updates the film with the same tmdb_id or inserts a new
// published film.
func (w *tmdbTxWriter) UpsertTMDBFilm(ctx context.Context, f model.Film) (uint64, bool, error) {
	if f.TMDBID == nil {
		return 0, false, errors.New("tmdb film without tmdb id")
	}
	var id uint64
	err := w.tx.QueryRowContext(ctx, "SELECT id FROM films WHERE tmdb_id = ?", *f.TMDBID).Scan(&id)
	switch {
	case err == nil:
		if _, err := w.tx.ExecContext(ctx,
			"UPDATE films SET title=?, description=?, release_date=?, poster_url=?, author_id=? WHERE id=?",
			f.Title, f.Description, nullTime(f.ReleaseDate), f.PosterURL, f.AuthorID, id); err != nil {
			return 0, false, classify(err)
		}
		return id, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("lookup film: %w", err)
	}
	res, err := w.tx.ExecContext(ctx,
		`INSERT INTO films (title, description, release_date, evaluation, status, source, tmdb_id, poster_url, author_id)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		f.Title, f.Description, nullTime(f.ReleaseDate), string(model.EvaluationG), string(model.FilmPublished),
		string(model.SourceTMDB), *f.TMDBID, f.PosterURL, f.AuthorID)
	if err != nil {
		return 0, false, classify(err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return uint64(newID), true, nil
}
