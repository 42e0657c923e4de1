package service

import (
	"context"
	"errors"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
)

// CodeMissingFilmID is returned by favorite operations without a film id.
const CodeMissingFilmID = "MISSING_FILM_ID"

// FavoriteResult reports whether a favorite operation changed anything.
type FavoriteResult struct {
	FilmID  uint64 `json:"film_id"`
	Changed bool   `json:"changed"`
}

// favoriteFilm checks the film id and the film's visibility to the caller.
func (s *SpectatorService) favoriteFilm(ctx context.Context, op string, sub policy.Subject, filmID uint64) error {
	if filmID == 0 {
		return apperr.Validation("film_id", "film_id is required.").WithCode(CodeMissingFilmID)
	}
	f, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		return storeErr(op, err, "Film")
	}
	return policy.Check(sub, policy.Read, filmTarget(f))
}

// AddFavorite bookmarks a film. Adding a film twice is a no-op.
func (s *SpectatorService) AddFavorite(ctx context.Context, sub policy.Subject, filmID uint64) (FavoriteResult, error) {
	const op = "service.SpectatorService.AddFavorite"
	sp, err := s.profile(ctx, op, sub, policy.Create, policy.Favorite)
	if err != nil {
		return FavoriteResult{}, err
	}
	if err := s.favoriteFilm(ctx, op, sub, filmID); err != nil {
		return FavoriteResult{}, err
	}
	added, err := s.spectators.AddFavorite(ctx, sp.ID, filmID)
	if err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return FavoriteResult{}, apperr.NotFound("Film not found.")
		}
		return FavoriteResult{}, storeErr(op, err, "Favorite")
	}
	if added {
		s.invalidate(ctx, cache.ScopeSpectators)
		s.emit(ctx, queue.EventFavoriteAdded, sub.UserID, map[string]any{"spectator_id": sp.ID, "film_id": filmID})
	}
	return FavoriteResult{FilmID: filmID, Changed: added}, nil
}

// RemoveFavorite drops a bookmark. Removing an absent favorite is a no-op.
func (s *SpectatorService) RemoveFavorite(ctx context.Context, sub policy.Subject, filmID uint64) (FavoriteResult, error) {
	const op = "service.SpectatorService.RemoveFavorite"
	sp, err := s.profile(ctx, op, sub, policy.Delete, policy.Favorite)
	if err != nil {
		return FavoriteResult{}, err
	}
	if filmID == 0 {
		return FavoriteResult{}, apperr.Validation("film_id", "film_id is required.").WithCode(CodeMissingFilmID)
	}
	if _, err := s.films.GetByID(ctx, filmID); err != nil {
		return FavoriteResult{}, storeErr(op, err, "Film")
	}
	removed, err := s.spectators.RemoveFavorite(ctx, sp.ID, filmID)
	if err != nil {
		return FavoriteResult{}, storeErr(op, err, "Favorite")
	}
	if removed {
		s.invalidate(ctx, cache.ScopeSpectators)
		s.emit(ctx, queue.EventFavoriteRemoved, sub.UserID, map[string]any{"spectator_id": sp.ID, "film_id": filmID})
	}
	return FavoriteResult{FilmID: filmID, Changed: removed}, nil
}

// ListFavorites returns the caller's favorites, oldest first.
func (s *SpectatorService) ListFavorites(ctx context.Context, sub policy.Subject) ([]model.Favorite, error) {
	const op = "service.SpectatorService.ListFavorites"
	sp, err := s.profile(ctx, op, sub, policy.Read, policy.Favorite)
	if err != nil {
		return nil, err
	}
	favs, err := s.spectators.ListFavorites(ctx, sp.ID)
	if err != nil {
		return nil, storeErr(op, err, "Favorite")
	}
	if favs == nil {
		favs = []model.Favorite{}
	}
	return favs, nil
}
