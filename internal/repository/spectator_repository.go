package repository

import (
	"context"
	"time"

	"github.com/mehdibennis/cinema/internal/model"
)

const spectatorSelect = `SELECT s.id, s.user_id, u.username, u.email, u.first_name, u.last_name,
       s.favorite_genre, s.bio, s.created_at, s.updated_at
FROM spectators s JOIN users u ON u.id = s.user_id`

type SpectatorRepo struct{ db DBTX }

func NewSpectatorRepo(db DBTX) *SpectatorRepo { return &SpectatorRepo{db: db} }

func scanSpectator(s scanner, sp *model.Spectator) error {
	var genre string
	if err := s.Scan(&sp.ID, &sp.UserID, &sp.Username, &sp.Email, &sp.FirstName, &sp.LastName,
		&genre, &sp.Bio, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return err
	}
	sp.FavoriteGenre = model.Genre(genre)
	return nil
}

func (r *SpectatorRepo) GetByID(ctx context.Context, id uint64) (model.Spectator, error) {
	var sp model.Spectator
	err := scanSpectator(r.db.QueryRowContext(ctx, spectatorSelect+" WHERE s.id = ?", id), &sp)
	return sp, classify(err)
}

func (r *SpectatorRepo) GetByUserID(ctx context.Context, userID uint64) (model.Spectator, error) {
	var sp model.Spectator
	err := scanSpectator(r.db.QueryRowContext(ctx, spectatorSelect+" WHERE s.user_id = ?", userID), &sp)
	return sp, classify(err)
}

func (r *SpectatorRepo) List(ctx context.Context, limit, offset int) ([]model.Spectator, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spectators").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, spectatorSelect+" ORDER BY s.id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Spectator{}
	for rows.Next() {
		var sp model.Spectator
		if err := scanSpectator(rows, &sp); err != nil {
			return nil, 0, err
		}
		out = append(out, sp)
	}
	return out, total, rows.Err()
}

// Update writes the editable profile columns.
func (r *SpectatorRepo) Update(ctx context.Context, sp *model.Spectator) error {
	_, err := r.db.ExecContext(ctx, "UPDATE spectators SET favorite_genre=?, bio=? WHERE id=?",
		string(sp.FavoriteGenre), sp.Bio, sp.ID)
	return classify(err)
}

// AddFavorite bookmarks a film. Re-adding is a no-op; added reports whether a
// row was inserted.
func (r *SpectatorRepo) AddFavorite(ctx context.Context, spectatorID, filmID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO spectator_favorites (spectator_id, film_id) VALUES (?, ?)", spectatorID, filmID)
	if err != nil {
		return false, classify(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RemoveFavorite drops a bookmark. Removing an absent bookmark is a no-op.
func (r *SpectatorRepo) RemoveFavorite(ctx context.Context, spectatorID, filmID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM spectator_favorites WHERE spectator_id=? AND film_id=?", spectatorID, filmID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListFavorites returns bookmarked films in the order they were added.
func (r *SpectatorRepo) ListFavorites(ctx context.Context, spectatorID uint64) ([]model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, filmSelect+", sf.created_at"+filmFrom+`
JOIN spectator_favorites sf ON sf.film_id = f.id
WHERE sf.spectator_id = ?
ORDER BY sf.created_at ASC, f.id ASC`, spectatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Favorite{}
	for rows.Next() {
		var (
			fav     model.Favorite
			addedAt time.Time
		)
		if err := scanFilm(rows, &fav.Film, &addedAt); err != nil {
			return nil, err
		}
		fav.AddedAt = addedAt
		out = append(out, fav)
	}
	return out, rows.Err()
}
