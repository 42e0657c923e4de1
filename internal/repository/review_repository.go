package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mehdibennis/cinema/internal/model"
)

// reviewTable names one of the two review tables and its target column.
type reviewTable struct {
	name   string
	target string
}

var (
	filmReviews   = reviewTable{name: "film_reviews", target: "film_id"}
	authorReviews = reviewTable{name: "author_reviews", target: "author_id"}
)

type reviewRow struct {
	ID        uint64
	UserID    uint64
	Username  string
	TargetID  uint64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func (t reviewTable) selectSQL() string {
	return fmt.Sprintf(`SELECT rv.id, rv.user_id, u.username, rv.%s, rv.rating, rv.comment, rv.created_at
FROM %s rv JOIN users u ON u.id = rv.user_id`, t.target, t.name)
}

// ReviewRepo stores film and author reviews. Uniqueness of one review per
// (user, target) is enforced by the tables' unique keys.
type ReviewRepo struct{ db DBTX }

func NewReviewRepo(db DBTX) *ReviewRepo { return &ReviewRepo{db: db} }

func (r *ReviewRepo) insert(ctx context.Context, t reviewTable, userID, targetID uint64, rating int, comment string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (user_id, %s, rating, comment) VALUES (?,?,?,?)", t.name, t.target),
		userID, targetID, rating, comment)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *ReviewRepo) get(ctx context.Context, t reviewTable, id uint64) (reviewRow, error) {
	var row reviewRow
	err := r.db.QueryRowContext(ctx, t.selectSQL()+" WHERE rv.id = ?", id).
		Scan(&row.ID, &row.UserID, &row.Username, &row.TargetID, &row.Rating, &row.Comment, &row.CreatedAt)
	return row, classify(err)
}

func (r *ReviewRepo) list(ctx context.Context, t reviewTable, targetID uint64, publishedOnly bool, limit, offset int) ([]reviewRow, int64, error) {
	var conds []string
	var args []any
	if targetID != 0 {
		conds = append(conds, fmt.Sprintf("rv.%s = ?", t.target))
		args = append(args, targetID)
	}
	if publishedOnly {
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM films f WHERE f.id = rv.%s AND f.status = 'published')", t.target))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+" rv"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, t.selectSQL()+where+" ORDER BY rv.created_at DESC, rv.id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []reviewRow
	for rows.Next() {
		var row reviewRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Username, &row.TargetID, &row.Rating, &row.Comment, &row.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

func (r *ReviewRepo) delete(ctx context.Context, t reviewTable, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func toFilmReview(row reviewRow) model.FilmReview {
	return model.FilmReview{ID: row.ID, UserID: row.UserID, Username: row.Username, FilmID: row.TargetID,
		Rating: row.Rating, Comment: row.Comment, CreatedAt: row.CreatedAt}
}

func toAuthorReview(row reviewRow) model.AuthorReview {
	return model.AuthorReview{ID: row.ID, UserID: row.UserID, Username: row.Username, AuthorID: row.TargetID,
		Rating: row.Rating, Comment: row.Comment, CreatedAt: row.CreatedAt}
}

// CreateFilmReview inserts a review and returns the stored row. A second
// review by the same user yields ErrDuplicate; a missing film yields
// ErrMissingReference.
func (r *ReviewRepo) CreateFilmReview(ctx context.Context, userID, filmID uint64, rating int, comment string) (model.FilmReview, error) {
	id, err := r.insert(ctx, filmReviews, userID, filmID, rating, comment)
	if err != nil {
		return model.FilmReview{}, err
	}
	return r.GetFilmReview(ctx, id)
}

func (r *ReviewRepo) GetFilmReview(ctx context.Context, id uint64) (model.FilmReview, error) {
	row, err := r.get(ctx, filmReviews, id)
	if err != nil {
		return model.FilmReview{}, err
	}
	return toFilmReview(row), nil
}

// ListFilmReviews lists reviews newest first; filmID 0 lists all films.
// publishedOnly drops reviews of films that are not published.
func (r *ReviewRepo) ListFilmReviews(ctx context.Context, filmID uint64, publishedOnly bool, limit, offset int) ([]model.FilmReview, int64, error) {
	rows, total, err := r.list(ctx, filmReviews, filmID, publishedOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.FilmReview, 0, len(rows))
	for _, row := range rows {
		out = append(out, toFilmReview(row))
	}
	return out, total, nil
}

func (r *ReviewRepo) DeleteFilmReview(ctx context.Context, id uint64) error {
	return r.delete(ctx, filmReviews, id)
}

// CreateAuthorReview mirrors CreateFilmReview for authors.
func (r *ReviewRepo) CreateAuthorReview(ctx context.Context, userID, authorID uint64, rating int, comment string) (model.AuthorReview, error) {
	id, err := r.insert(ctx, authorReviews, userID, authorID, rating, comment)
	if err != nil {
		return model.AuthorReview{}, err
	}
	return r.GetAuthorReview(ctx, id)
}

func (r *ReviewRepo) GetAuthorReview(ctx context.Context, id uint64) (model.AuthorReview, error) {
	row, err := r.get(ctx, authorReviews, id)
	if err != nil {
		return model.AuthorReview{}, err
	}
	return toAuthorReview(row), nil
}

func (r *ReviewRepo) ListAuthorReviews(ctx context.Context, authorID uint64, limit, offset int) ([]model.AuthorReview, int64, error) {
	rows, total, err := r.list(ctx, authorReviews, authorID, false, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.AuthorReview, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAuthorReview(row))
	}
	return out, total, nil
}

func (r *ReviewRepo) DeleteAuthorReview(ctx context.Context, id uint64) error {
	return r.delete(ctx, authorReviews, id)
}
