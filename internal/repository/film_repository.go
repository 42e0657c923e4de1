package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/rating"
)

// filmSelect joins the owning author/user and the read-time review aggregate.
const filmSelect = `SELECT f.id, f.title, f.description, f.release_date, f.evaluation, f.status, f.source,
       f.tmdb_id, f.poster_url, f.author_id, a.user_id, u.username, u.first_name, u.last_name,
       f.created_at, f.updated_at, COALESCE(r.total, 0), COALESCE(r.cnt, 0)`

const filmFrom = `
FROM films f
JOIN authors a ON a.id = f.author_id
JOIN users u ON u.id = a.user_id
LEFT JOIN (SELECT film_id, SUM(rating) AS total, COUNT(*) AS cnt FROM film_reviews GROUP BY film_id) r ON r.film_id = f.id`

var filmOrderings = map[string]string{
	"release_date":   "f.release_date",
	"created_at":     "f.created_at",
	"title":          "f.title",
	"average_rating": "(r.total / r.cnt)",
}

type FilmRepo struct{ db DBTX }

func NewFilmRepo(db DBTX) *FilmRepo { return &FilmRepo{db: db} }

// scanFilm reads the filmSelect columns followed by any extra destinations.
func scanFilm(s scanner, f *model.Film, extra ...any) error {
	var (
		release          sql.NullTime
		tmdbID           sql.NullInt64
		evaluation       string
		status           string
		source           string
		username         string
		first, last      string
		total, reviewCnt int64
	)
	dest := []any{&f.ID, &f.Title, &f.Description, &release, &evaluation, &status, &source,
		&tmdbID, &f.PosterURL, &f.AuthorID, &f.AuthorUserID, &username, &first, &last,
		&f.CreatedAt, &f.UpdatedAt, &total, &reviewCnt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	f.ReleaseDate = timePtr(release)
	f.TMDBID = intPtr(tmdbID)
	f.Evaluation = model.Evaluation(evaluation)
	f.Status = model.FilmStatus(status)
	f.Source = model.Source(source)
	f.AuthorName = displayName(first, last, username)
	sum := rating.Summarize(total, reviewCnt)
	f.AverageRating, f.ReviewsCount = sum.Average, sum.Count
	return nil
}

// filmWhere builds the WHERE clause shared by list and count queries.
func filmWhere(flt model.FilmFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if flt.PublishedOnly {
		conds = append(conds, "f.status = ?")
		args = append(args, string(model.FilmPublished))
	} else if flt.Status != "" {
		conds = append(conds, "f.status = ?")
		args = append(args, string(flt.Status))
	}
	if flt.Evaluation != "" {
		conds = append(conds, "f.evaluation = ?")
		args = append(args, string(flt.Evaluation))
	}
	if flt.Source != "" {
		conds = append(conds, "f.source = ?")
		args = append(args, string(flt.Source))
	}
	if flt.AuthorID != 0 {
		conds = append(conds, "f.author_id = ?")
		args = append(args, flt.AuthorID)
	}
	if s := strings.TrimSpace(flt.Search); s != "" {
		p := likePattern(s)
		conds = append(conds, "(f.title LIKE ? OR f.description LIKE ?)")
		args = append(args, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of films matching flt and the total match count.
func (r *FilmRepo) List(ctx context.Context, flt model.FilmFilter) ([]model.Film, int64, error) {
	where, args := filmWhere(flt)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM films f"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := filmSelect + filmFrom + where +
		" ORDER BY " + orderClause(flt.Ordering, filmOrderings, "f.created_at DESC") + ", f.id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, flt.Limit, flt.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	films := []model.Film{}
	for rows.Next() {
		var f model.Film
		if err := scanFilm(rows, &f); err != nil {
			return nil, 0, err
		}
		films = append(films, f)
	}
	return films, total, rows.Err()
}

// GetByID returns the film or ErrNotFound.
func (r *FilmRepo) GetByID(ctx context.Context, id uint64) (model.Film, error) {
	var f model.Film
	err := scanFilm(r.db.QueryRowContext(ctx, filmSelect+filmFrom+" WHERE f.id = ?", id), &f)
	return f, classify(err)
}

// Create inserts f and sets its ID. A missing author yields ErrMissingReference.
func (r *FilmRepo) Create(ctx context.Context, f *model.Film) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO films (title, description, release_date, evaluation, status, source, tmdb_id, poster_url, author_id)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		f.Title, f.Description, nullTime(f.ReleaseDate), string(f.Evaluation), string(f.Status),
		string(f.Source), nullInt(f.TMDBID), f.PosterURL, f.AuthorID)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// Update writes every editable column of f.
func (r *FilmRepo) Update(ctx context.Context, f *model.Film) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE films SET title=?, description=?, release_date=?, evaluation=?, status=?, poster_url=?, author_id=?
		 WHERE id=?`,
		f.Title, f.Description, nullTime(f.ReleaseDate), string(f.Evaluation), string(f.Status),
		f.PosterURL, f.AuthorID, f.ID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too, so confirm existence.
		if _, err := r.GetByID(ctx, f.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetStatus changes only the status column.
func (r *FilmRepo) SetStatus(ctx context.Context, id uint64, status model.FilmStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE films SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the film; its reviews and favorites cascade.
func (r *FilmRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM films WHERE id=?", id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
