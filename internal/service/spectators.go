package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/validation"
)

type SpectatorPatch struct {
	FavoriteGenre *string `json:"favorite_genre" validate:"omitempty,oneof=action comedy drama horror scifi romance thriller animation documentary fantasy"`
	Bio           *string `json:"bio" validate:"omitempty,max=5000"`
}

// SpectatorService covers spectator profiles and their favorite films.
type SpectatorService struct {
	base
	spectators SpectatorStore
	films      FilmStore
}

func NewSpectatorService(spectators SpectatorStore, films FilmStore, events EventPublisher, inv Invalidator, log zerolog.Logger) *SpectatorService {
	return &SpectatorService{base: newBase(events, inv, log), spectators: spectators, films: films}
}

func (s *SpectatorService) List(ctx context.Context, sub policy.Subject, p PageRequest) (model.Page[model.Spectator], error) {
	const op = "service.SpectatorService.List"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.Spectator}); err != nil {
		return model.Page[model.Spectator]{}, err
	}
	p = p.Normalize()
	items, total, err := s.spectators.List(ctx, p.PageSize, p.Offset())
	if err != nil {
		return model.Page[model.Spectator]{}, storeErr(op, err, "Spectator")
	}
	return page(items, total, p), nil
}

func (s *SpectatorService) Get(ctx context.Context, sub policy.Subject, id uint64) (model.Spectator, error) {
	const op = "service.SpectatorService.Get"
	sp, err := s.spectators.GetByID(ctx, id)
	if err != nil {
		return model.Spectator{}, storeErr(op, err, "Spectator")
	}
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.Spectator, OwnerID: sp.UserID}); err != nil {
		return model.Spectator{}, err
	}
	return sp, nil
}

// Me returns the caller's own spectator profile.
func (s *SpectatorService) Me(ctx context.Context, sub policy.Subject) (model.Spectator, error) {
	return s.profile(ctx, "service.SpectatorService.Me", sub, policy.Read, policy.Spectator)
}

// UpdateMe edits the caller's spectator profile.
func (s *SpectatorService) UpdateMe(ctx context.Context, sub policy.Subject, patch SpectatorPatch) (model.Spectator, error) {
	const op = "service.SpectatorService.UpdateMe"
	sp, err := s.profile(ctx, op, sub, policy.Update, policy.Spectator)
	if err != nil {
		return model.Spectator{}, err
	}
	if err := validation.Struct(patch); err != nil {
		return model.Spectator{}, err
	}
	if patch.FavoriteGenre != nil {
		sp.FavoriteGenre = model.Genre(*patch.FavoriteGenre)
	}
	if patch.Bio != nil {
		sp.Bio = *patch.Bio
	}
	if err := s.spectators.Update(ctx, &sp); err != nil {
		return model.Spectator{}, storeErr(op, err, "Spectator")
	}
	s.invalidate(ctx, cache.ScopeSpectators)
	out, err := s.spectators.GetByID(ctx, sp.ID)
	if err != nil {
		return model.Spectator{}, storeErr(op, err, "Spectator")
	}
	return out, nil
}

// profile resolves the spectator profile of the caller and checks the
// action against it. Accounts without one are refused.
func (s *SpectatorService) profile(ctx context.Context, op string, sub policy.Subject, a policy.Action, res policy.Resource) (model.Spectator, error) {
	if err := policy.Check(sub, a, policy.Target{Resource: res, OwnerID: sub.UserID}); err != nil {
		return model.Spectator{}, err
	}
	sp, err := s.spectators.GetByUserID(ctx, sub.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Spectator{}, apperr.PermissionDenied("Only spectators can do this.").WithCode(CodeSpectatorRequired)
		}
		return model.Spectator{}, storeErr(op, err, "Spectator")
	}
	return sp, nil
}
