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

// CodeAuthorHasFilms is returned when deleting an author who still owns films.
const CodeAuthorHasFilms = "AUTHOR_HAS_FILMS"

type AuthorInput struct {
	UserID      uint64  `json:"user_id" validate:"required"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Bio         string  `json:"bio" validate:"max=5000"`
	PhotoURL    string  `json:"photo_url" validate:"omitempty,url,max=500"`
}

type AuthorPatch struct {
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Bio         *string `json:"bio" validate:"omitempty,max=5000"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,max=500"`
}

type AuthorService struct {
	base
	authors AuthorStore
	films   FilmStore
	users   UserStore
}

func NewAuthorService(authors AuthorStore, films FilmStore, users UserStore, events EventPublisher, inv Invalidator, log zerolog.Logger) *AuthorService {
	return &AuthorService{base: newBase(events, inv, log), authors: authors, films: films, users: users}
}

func authorTarget(a model.Author) policy.Target {
	return policy.Target{Resource: policy.Author, OwnerID: a.UserID}
}

func (s *AuthorService) List(ctx context.Context, sub policy.Subject, flt model.AuthorFilter, p PageRequest) (model.Page[model.Author], error) {
	const op = "service.AuthorService.List"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.Author}); err != nil {
		return model.Page[model.Author]{}, err
	}
	p = p.Normalize()
	flt.Limit, flt.Offset = p.PageSize, p.Offset()
	authors, total, err := s.authors.List(ctx, flt)
	if err != nil {
		return model.Page[model.Author]{}, storeErr(op, err, "Author")
	}
	return page(authors, total, p), nil
}

// Get returns the author with the films the caller may see.
func (s *AuthorService) Get(ctx context.Context, sub policy.Subject, id uint64) (model.Author, error) {
	const op = "service.AuthorService.Get"
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return model.Author{}, storeErr(op, err, "Author")
	}
	if err := policy.Check(sub, policy.Read, authorTarget(a)); err != nil {
		return model.Author{}, err
	}
	films, _, err := s.films.List(ctx, model.FilmFilter{
		AuthorID:      a.ID,
		PublishedOnly: !policy.SeesUnpublished(sub),
		Ordering:      "-release_date",
		Limit:         MaxPageSize,
	})
	if err != nil {
		return model.Author{}, storeErr(op, err, "Film")
	}
	a.Films = films
	return a, nil
}

// Create attaches an author profile to an existing non-spectator user.
func (s *AuthorService) Create(ctx context.Context, sub policy.Subject, in AuthorInput) (model.Author, error) {
	const op = "service.AuthorService.Create"
	if err := policy.Check(sub, policy.Create, policy.Target{Resource: policy.Author}); err != nil {
		return model.Author{}, err
	}
	if err := validation.Struct(in); err != nil {
		return model.Author{}, err
	}
	dob, err := parseDate("date_of_birth", in.DateOfBirth)
	if err != nil {
		return model.Author{}, err
	}
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Author{}, apperr.Validation("user_id", "User does not exist.")
		}
		return model.Author{}, storeErr(op, err, "User")
	}
	if u.Role == model.RoleSpectator {
		return model.Author{}, apperr.Validation("user_id", "A spectator cannot have an author profile.")
	}

	a := model.Author{UserID: u.ID, DateOfBirth: dob, Bio: in.Bio, PhotoURL: in.PhotoURL, Source: model.SourceAdmin}
	if err := s.authors.Create(ctx, &a); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.Author{}, apperr.Conflict("AUTHOR_EXISTS", "This user already has an author profile.")
		case errors.Is(err, repository.ErrMissingReference):
			return model.Author{}, apperr.Validation("user_id", "User does not exist.")
		}
		return model.Author{}, storeErr(op, err, "Author")
	}
	s.invalidate(ctx, cache.ScopeAuthors)
	return s.reload(ctx, op, a.ID)
}

// Update edits an author profile; authors may edit their own.
func (s *AuthorService) Update(ctx context.Context, sub policy.Subject, id uint64, patch AuthorPatch) (model.Author, error) {
	const op = "service.AuthorService.Update"
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return model.Author{}, storeErr(op, err, "Author")
	}
	if err := policy.Check(sub, policy.Update, authorTarget(a)); err != nil {
		return model.Author{}, err
	}
	if err := validation.Struct(patch); err != nil {
		return model.Author{}, err
	}
	if patch.DateOfBirth != nil {
		if a.DateOfBirth, err = parseDate("date_of_birth", patch.DateOfBirth); err != nil {
			return model.Author{}, err
		}
	}
	if patch.Bio != nil {
		a.Bio = *patch.Bio
	}
	if patch.PhotoURL != nil {
		a.PhotoURL = *patch.PhotoURL
	}
	if err := s.authors.Update(ctx, &a); err != nil {
		return model.Author{}, storeErr(op, err, "Author")
	}
	s.invalidate(ctx, cache.ScopeAuthors, cache.ScopeFilms)
	return s.reload(ctx, op, id)
}

// Delete removes an author profile. Films protect their author: the storage
// layer refuses the delete and the author stays intact.
func (s *AuthorService) Delete(ctx context.Context, sub policy.Subject, id uint64) error {
	const op = "service.AuthorService.Delete"
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return storeErr(op, err, "Author")
	}
	if err := policy.Check(sub, policy.Delete, authorTarget(a)); err != nil {
		return err
	}
	if err := s.authors.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProtected) {
			return apperr.Integrity(CodeAuthorHasFilms, "Cannot delete this author because they still have films.")
		}
		return storeErr(op, err, "Author")
	}
	s.log.Info().Str("op", op).Uint64("author_id", id).Msg("author deleted")
	s.invalidate(ctx, cache.ScopeAuthors, cache.ScopeAuthorReviews)
	return nil
}

func (s *AuthorService) reload(ctx context.Context, op string, id uint64) (model.Author, error) {
	a, err := s.authors.GetByID(ctx, id)
	if err != nil {
		return model.Author{}, storeErr(op, err, "Author")
	}
	return a, nil
}
