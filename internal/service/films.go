package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/validation"
)

const dateLayout = "2006-01-02"

// FilmInput is the body of a film creation request.
type FilmInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	ReleaseDate *string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Evaluation  string  `json:"evaluation" validate:"omitempty,oneof=G PG PG-13 R NC-17"`
	Status      string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	PosterURL   string  `json:"poster_url" validate:"omitempty,url,max=500"`
	AuthorID    uint64  `json:"author_id"`
}

// FilmPatch is a partial update; nil fields are left unchanged.
type FilmPatch struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	ReleaseDate *string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
	Evaluation  *string `json:"evaluation" validate:"omitempty,oneof=G PG PG-13 R NC-17"`
	Status      *string `json:"status" validate:"omitempty,oneof=draft published archived"`
	PosterURL   *string `json:"poster_url" validate:"omitempty,max=500"`
	AuthorID    *uint64 `json:"author_id"`
}

type FilmService struct {
	base
	films   FilmStore
	authors AuthorStore
}

func NewFilmService(films FilmStore, authors AuthorStore, events EventPublisher, inv Invalidator, log zerolog.Logger) *FilmService {
	return &FilmService{base: newBase(events, inv, log), films: films, authors: authors}
}

func filmTarget(f model.Film) policy.Target {
	return policy.Target{Resource: policy.Film, OwnerID: f.AuthorUserID, Published: f.Status == model.FilmPublished}
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, apperr.Validation(field, "Date has wrong format. Use YYYY-MM-DD.")
	}
	return &t, nil
}

// List returns a page of films. Callers who may not read unpublished films
// only ever see published ones, whatever status filter they pass.
func (s *FilmService) List(ctx context.Context, sub policy.Subject, flt model.FilmFilter, p PageRequest) (model.Page[model.Film], error) {
	const op = "service.FilmService.List"
	p = p.Normalize()
	flt.PublishedOnly = !policy.SeesUnpublished(sub)
	flt.Limit, flt.Offset = p.PageSize, p.Offset()

	films, total, err := s.films.List(ctx, flt)
	if err != nil {
		return model.Page[model.Film]{}, storeErr(op, err, "Film")
	}
	return page(films, total, p), nil
}

// Get returns one film if the caller may read it.
func (s *FilmService) Get(ctx context.Context, sub policy.Subject, id uint64) (model.Film, error) {
	const op = "service.FilmService.Get"
	f, err := s.films.GetByID(ctx, id)
	if err != nil {
		return model.Film{}, storeErr(op, err, "Film")
	}
	if err := policy.Check(sub, policy.Read, filmTarget(f)); err != nil {
		return model.Film{}, err
	}
	return f, nil
}

// Create adds a film. Authors always create films under their own profile;
// admins must name the author.
func (s *FilmService) Create(ctx context.Context, sub policy.Subject, in FilmInput) (model.Film, error) {
	const op = "service.FilmService.Create"
	log := s.log.With().Str("op", op).Uint64("user_id", sub.UserID).Logger()

	if err := policy.Check(sub, policy.Create, policy.Target{Resource: policy.Film}); err != nil {
		return model.Film{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return model.Film{}, err
	}
	release, err := parseDate("release_date", in.ReleaseDate)
	if err != nil {
		return model.Film{}, err
	}

	f := model.Film{
		Title:       in.Title,
		Description: in.Description,
		ReleaseDate: release,
		Evaluation:  model.EvaluationG,
		Status:      model.FilmDraft,
		Source:      model.SourceAdmin,
		PosterURL:   in.PosterURL,
	}
	if in.Evaluation != "" {
		f.Evaluation = model.Evaluation(in.Evaluation)
	}
	if in.Status != "" {
		f.Status = model.FilmStatus(in.Status)
	}

	authorID, err := s.resolveAuthor(ctx, sub, in.AuthorID)
	if err != nil {
		return model.Film{}, err
	}
	f.AuthorID = authorID

	if err := s.films.Create(ctx, &f); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return model.Film{}, apperr.Validation("author_id", "Author does not exist.")
		}
		return model.Film{}, storeErr(op, err, "Film")
	}
	log.Info().Uint64("film_id", f.ID).Msg("film created")
	s.invalidate(ctx, cache.ScopeFilms)
	return s.reload(ctx, op, f.ID)
}

// resolveAuthor picks the author profile a new film belongs to.
func (s *FilmService) resolveAuthor(ctx context.Context, sub policy.Subject, requested uint64) (uint64, error) {
	if sub.Role == model.RoleAuthor {
		a, err := s.authors.GetByUserID(ctx, sub.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, apperr.Validation("author_id", "Your account has no author profile.")
			}
			return 0, storeErr("service.FilmService.resolveAuthor", err, "Author")
		}
		if requested != 0 && requested != a.ID {
			return 0, apperr.PermissionDenied("Authors can only create films under their own profile.")
		}
		return a.ID, nil
	}
	if requested == 0 {
		return 0, apperr.Validation("author_id", "This field is required.")
	}
	if _, err := s.authors.GetByID(ctx, requested); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.Validation("author_id", "Author does not exist.")
		}
		return 0, storeErr("service.FilmService.resolveAuthor", err, "Author")
	}
	return requested, nil
}

// Update applies a partial update to a film the caller owns (or any film for
// admins). Only admins may move a film to another author.
func (s *FilmService) Update(ctx context.Context, sub policy.Subject, id uint64, patch FilmPatch) (model.Film, error) {
	const op = "service.FilmService.Update"
	f, err := s.films.GetByID(ctx, id)
	if err != nil {
		return model.Film{}, storeErr(op, err, "Film")
	}
	if err := policy.Check(sub, policy.Update, filmTarget(f)); err != nil {
		return model.Film{}, err
	}
	if err := validation.Struct(patch); err != nil {
		return model.Film{}, err
	}

	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return model.Film{}, apperr.Validation("title", "This field may not be blank.")
		}
		f.Title = t
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.ReleaseDate != nil {
		if f.ReleaseDate, err = parseDate("release_date", patch.ReleaseDate); err != nil {
			return model.Film{}, err
		}
	}
	if patch.Evaluation != nil {
		f.Evaluation = model.Evaluation(*patch.Evaluation)
	}
	if patch.Status != nil {
		f.Status = model.FilmStatus(*patch.Status)
	}
	if patch.PosterURL != nil {
		f.PosterURL = *patch.PosterURL
	}
	if patch.AuthorID != nil && *patch.AuthorID != f.AuthorID {
		if sub.Role != model.RoleAdmin {
			return model.Film{}, apperr.PermissionDenied("Only admins can reassign a film.")
		}
		if f.AuthorID, err = s.resolveAuthor(ctx, sub, *patch.AuthorID); err != nil {
			return model.Film{}, err
		}
	}

	if err := s.films.Update(ctx, &f); err != nil {
		return model.Film{}, storeErr(op, err, "Film")
	}
	s.invalidate(ctx, cache.ScopeFilms)
	return s.reload(ctx, op, id)
}

// Delete removes a film the caller owns (or any film for admins).
func (s *FilmService) Delete(ctx context.Context, sub policy.Subject, id uint64) error {
	const op = "service.FilmService.Delete"
	f, err := s.films.GetByID(ctx, id)
	if err != nil {
		return storeErr(op, err, "Film")
	}
	if err := policy.Check(sub, policy.Delete, filmTarget(f)); err != nil {
		return err
	}
	if err := s.films.Delete(ctx, id); err != nil {
		return storeErr(op, err, "Film")
	}
	s.log.Info().Str("op", op).Uint64("film_id", id).Uint64("user_id", sub.UserID).Msg("film deleted")
	s.invalidate(ctx, cache.ScopeFilms, cache.ScopeFilmReviews)
	return nil
}

// Archive moves a film to the archived status. Admin only.
func (s *FilmService) Archive(ctx context.Context, sub policy.Subject, id uint64) (model.Film, error) {
	const op = "service.FilmService.Archive"
	f, err := s.films.GetByID(ctx, id)
	if err != nil {
		return model.Film{}, storeErr(op, err, "Film")
	}
	if err := policy.Check(sub, policy.Archive, filmTarget(f)); err != nil {
		return model.Film{}, err
	}
	if f.Status != model.FilmArchived {
		if err := s.films.SetStatus(ctx, id, model.FilmArchived); err != nil {
			return model.Film{}, storeErr(op, err, "Film")
		}
		s.invalidate(ctx, cache.ScopeFilms)
		s.emit(ctx, queue.EventFilmArchived, sub.UserID, map[string]any{"film_id": id})
	}
	return s.reload(ctx, op, id)
}

func (s *FilmService) reload(ctx context.Context, op string, id uint64) (model.Film, error) {
	f, err := s.films.GetByID(ctx, id)
	if err != nil {
		return model.Film{}, storeErr(op, err, "Film")
	}
	return f, nil
}
