package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/rating"
)

const authorSelect = `SELECT a.id, a.user_id, u.username, u.email, u.first_name, u.last_name,
       a.date_of_birth, a.bio, a.tmdb_id, a.source, a.photo_url, a.created_at, a.updated_at,
       COALESCE(r.total, 0), COALESCE(r.cnt, 0)
FROM authors a
JOIN users u ON u.id = a.user_id
LEFT JOIN (SELECT author_id, SUM(rating) AS total, COUNT(*) AS cnt FROM author_reviews GROUP BY author_id) r ON r.author_id = a.id`

var authorOrderings = map[string]string{
	"date_of_birth":  "a.date_of_birth",
	"created_at":     "a.created_at",
	"username":       "u.username",
	"average_rating": "(r.total / r.cnt)",
}

type AuthorRepo struct{ db DBTX }

func NewAuthorRepo(db DBTX) *AuthorRepo { return &AuthorRepo{db: db} }

func scanAuthor(s scanner, a *model.Author) error {
	var (
		dob        sql.NullTime
		tmdbID     sql.NullInt64
		source     string
		total, cnt int64
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Username, &a.Email, &a.FirstName, &a.LastName,
		&dob, &a.Bio, &tmdbID, &source, &a.PhotoURL, &a.CreatedAt, &a.UpdatedAt, &total, &cnt); err != nil {
		return err
	}
	a.DateOfBirth = timePtr(dob)
	a.TMDBID = intPtr(tmdbID)
	a.Source = model.Source(source)
	sum := rating.Summarize(total, cnt)
	a.AverageRating, a.ReviewsCount = sum.Average, sum.Count
	return nil
}

func authorWhere(flt model.AuthorFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if flt.Source != "" {
		conds = append(conds, "a.source = ?")
		args = append(args, string(flt.Source))
	}
	if s := strings.TrimSpace(flt.Search); s != "" {
		p := likePattern(s)
		conds = append(conds, "(u.username LIKE ? OR u.email LIKE ? OR a.bio LIKE ?)")
		args = append(args, p, p, p)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of authors with their rating aggregate.
func (r *AuthorRepo) List(ctx context.Context, flt model.AuthorFilter) ([]model.Author, int64, error) {
	where, args := authorWhere(flt)

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM authors a JOIN users u ON u.id = a.user_id"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := authorSelect + where + " ORDER BY " +
		orderClause(flt.Ordering, authorOrderings, "a.created_at DESC") + ", a.id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, flt.Limit, flt.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	authors := []model.Author{}
	for rows.Next() {
		var a model.Author
		if err := scanAuthor(rows, &a); err != nil {
			return nil, 0, err
		}
		authors = append(authors, a)
	}
	return authors, total, rows.Err()
}

func (r *AuthorRepo) GetByID(ctx context.Context, id uint64) (model.Author, error) {
	var a model.Author
	err := scanAuthor(r.db.QueryRowContext(ctx, authorSelect+" WHERE a.id = ?", id), &a)
	return a, classify(err)
}

func (r *AuthorRepo) GetByUserID(ctx context.Context, userID uint64) (model.Author, error) {
	var a model.Author
	err := scanAuthor(r.db.QueryRowContext(ctx, authorSelect+" WHERE a.user_id = ?", userID), &a)
	return a, classify(err)
}

// Create inserts an author profile for an existing user. A second profile for
// the same user yields ErrDuplicate.
func (r *AuthorRepo) Create(ctx context.Context, a *model.Author) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO authors (user_id, date_of_birth, bio, tmdb_id, source, photo_url) VALUES (?,?,?,?,?,?)",
		a.UserID, nullTime(a.DateOfBirth), a.Bio, nullInt(a.TMDBID), string(a.Source), a.PhotoURL)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Update writes the editable profile columns.
func (r *AuthorRepo) Update(ctx context.Context, a *model.Author) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE authors SET date_of_birth=?, bio=?, photo_url=? WHERE id=?",
		nullTime(a.DateOfBirth), a.Bio, a.PhotoURL, a.ID)
	return classify(err)
}

// Delete removes the author profile. Films reference authors with ON DELETE
// RESTRICT, so an author owning films yields ErrProtected.
func (r *AuthorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM authors WHERE id=?", id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
