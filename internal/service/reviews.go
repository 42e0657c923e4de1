package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/rating"
	"github.com/mehdibennis/cinema/internal/repository"
)

// CodeSpectatorRequired marks actions reserved to spectator accounts.
const CodeSpectatorRequired = "SPECTATOR_REQUIRED"

const maxCommentLen = 5000

// ReviewService creates, lists and deletes film and author reviews.
type ReviewService struct {
	base
	reviews ReviewStore
	films   FilmStore
	authors AuthorStore
}

func NewReviewService(reviews ReviewStore, films FilmStore, authors AuthorStore, events EventPublisher, inv Invalidator, log zerolog.Logger) *ReviewService {
	return &ReviewService{base: newBase(events, inv, log), reviews: reviews, films: films, authors: authors}
}

// requireSpectator refuses anyone but an authenticated spectator.
func requireSpectator(sub policy.Subject, res policy.Resource) error {
	err := policy.Check(sub, policy.Create, policy.Target{Resource: res})
	if err == nil && sub.Role == model.RoleSpectator {
		return nil
	}
	if !sub.Authenticated() {
		return err
	}
	return apperr.PermissionDenied("Only spectators can do this.").WithCode(CodeSpectatorRequired)
}

func validateReview(r int, comment string) error {
	if !rating.Valid(r) {
		return apperr.Validation("rating", "Ensure this value is between 1 and 5.")
	}
	if len(comment) > maxCommentLen {
		return apperr.Validation("comment", "Ensure this field has no more than 5000 characters.")
	}
	return nil
}

// AddFilmReview records a spectator's review of a film. A second review of
// the same film by the same spectator is a DuplicateReview error raised by
// the storage uniqueness constraint.
func (s *ReviewService) AddFilmReview(ctx context.Context, sub policy.Subject, filmID uint64, r int, comment string) (model.FilmReview, error) {
	const op = "service.ReviewService.AddFilmReview"
	if err := requireSpectator(sub, policy.FilmReview); err != nil {
		return model.FilmReview{}, err
	}
	comment = strings.TrimSpace(comment)
	if err := validateReview(r, comment); err != nil {
		return model.FilmReview{}, err
	}
	f, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		return model.FilmReview{}, storeErr(op, err, "Film")
	}
	if err := policy.Check(sub, policy.Read, filmTarget(f)); err != nil {
		return model.FilmReview{}, err
	}

	rv, err := s.reviews.CreateFilmReview(ctx, sub.UserID, filmID, r, comment)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.FilmReview{}, apperr.DuplicateReview("You have already reviewed this film.")
		case errors.Is(err, repository.ErrMissingReference):
			return model.FilmReview{}, apperr.NotFound("Film not found.")
		}
		return model.FilmReview{}, storeErr(op, err, "Review")
	}
	s.invalidate(ctx, cache.ScopeFilmReviews, cache.ScopeFilms)
	s.emit(ctx, queue.EventReviewCreated, sub.UserID, map[string]any{"kind": "film", "film_id": filmID, "review_id": rv.ID, "rating": r})
	return rv, nil
}

// AddAuthorReview records a spectator's review of an author.
func (s *ReviewService) AddAuthorReview(ctx context.Context, sub policy.Subject, authorID uint64, r int, comment string) (model.AuthorReview, error) {
	const op = "service.ReviewService.AddAuthorReview"
	if err := requireSpectator(sub, policy.AuthorReview); err != nil {
		return model.AuthorReview{}, err
	}
	comment = strings.TrimSpace(comment)
	if err := validateReview(r, comment); err != nil {
		return model.AuthorReview{}, err
	}
	if _, err := s.authors.GetByID(ctx, authorID); err != nil {
		return model.AuthorReview{}, storeErr(op, err, "Author")
	}

	rv, err := s.reviews.CreateAuthorReview(ctx, sub.UserID, authorID, r, comment)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.AuthorReview{}, apperr.DuplicateReview("You have already reviewed this author.")
		case errors.Is(err, repository.ErrMissingReference):
			return model.AuthorReview{}, apperr.NotFound("Author not found.")
		}
		return model.AuthorReview{}, storeErr(op, err, "Review")
	}
	s.invalidate(ctx, cache.ScopeAuthorReviews, cache.ScopeAuthors)
	s.emit(ctx, queue.EventReviewCreated, sub.UserID, map[string]any{"kind": "author", "author_id": authorID, "review_id": rv.ID, "rating": r})
	return rv, nil
}

// ListFilmReviews lists reviews of films the caller may read. Filtering on
// a film the caller cannot see is refused like reading the film itself.
func (s *ReviewService) ListFilmReviews(ctx context.Context, sub policy.Subject, filmID uint64, p PageRequest) (model.Page[model.FilmReview], error) {
	const op = "service.ReviewService.ListFilmReviews"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.FilmReview}); err != nil {
		return model.Page[model.FilmReview]{}, err
	}
	if filmID != 0 {
		if err := s.readableFilm(ctx, op, sub, filmID); err != nil {
			return model.Page[model.FilmReview]{}, err
		}
	}
	p = p.Normalize()
	items, total, err := s.reviews.ListFilmReviews(ctx, filmID, !policy.SeesUnpublished(sub), p.PageSize, p.Offset())
	if err != nil {
		return model.Page[model.FilmReview]{}, storeErr(op, err, "Review")
	}
	return page(items, total, p), nil
}

func (s *ReviewService) GetFilmReview(ctx context.Context, sub policy.Subject, id uint64) (model.FilmReview, error) {
	const op = "service.ReviewService.GetFilmReview"
	rv, err := s.reviews.GetFilmReview(ctx, id)
	if err != nil {
		return model.FilmReview{}, storeErr(op, err, "Review")
	}
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.FilmReview, OwnerID: rv.UserID}); err != nil {
		return model.FilmReview{}, err
	}
	if err := s.readableFilm(ctx, op, sub, rv.FilmID); err != nil {
		return model.FilmReview{}, err
	}
	return rv, nil
}

// readableFilm fails unless the film exists and sub may read it.
func (s *ReviewService) readableFilm(ctx context.Context, op string, sub policy.Subject, filmID uint64) error {
	f, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		return storeErr(op, err, "Film")
	}
	return policy.Check(sub, policy.Read, filmTarget(f))
}

// DeleteFilmReview lets the reviewing spectator or an admin remove a review.
func (s *ReviewService) DeleteFilmReview(ctx context.Context, sub policy.Subject, id uint64) error {
	const op = "service.ReviewService.DeleteFilmReview"
	rv, err := s.reviews.GetFilmReview(ctx, id)
	if err != nil {
		return storeErr(op, err, "Review")
	}
	if err := policy.Check(sub, policy.Delete, policy.Target{Resource: policy.FilmReview, OwnerID: rv.UserID}); err != nil {
		return err
	}
	if err := s.reviews.DeleteFilmReview(ctx, id); err != nil {
		return storeErr(op, err, "Review")
	}
	s.invalidate(ctx, cache.ScopeFilmReviews, cache.ScopeFilms)
	s.emit(ctx, queue.EventReviewDeleted, sub.UserID, map[string]any{"kind": "film", "film_id": rv.FilmID, "review_id": id})
	return nil
}

func (s *ReviewService) ListAuthorReviews(ctx context.Context, sub policy.Subject, authorID uint64, p PageRequest) (model.Page[model.AuthorReview], error) {
	const op = "service.ReviewService.ListAuthorReviews"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.AuthorReview}); err != nil {
		return model.Page[model.AuthorReview]{}, err
	}
	p = p.Normalize()
	items, total, err := s.reviews.ListAuthorReviews(ctx, authorID, p.PageSize, p.Offset())
	if err != nil {
		return model.Page[model.AuthorReview]{}, storeErr(op, err, "Review")
	}
	return page(items, total, p), nil
}

func (s *ReviewService) GetAuthorReview(ctx context.Context, sub policy.Subject, id uint64) (model.AuthorReview, error) {
	const op = "service.ReviewService.GetAuthorReview"
	rv, err := s.reviews.GetAuthorReview(ctx, id)
	if err != nil {
		return model.AuthorReview{}, storeErr(op, err, "Review")
	}
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.AuthorReview, OwnerID: rv.UserID}); err != nil {
		return model.AuthorReview{}, err
	}
	return rv, nil
}

func (s *ReviewService) DeleteAuthorReview(ctx context.Context, sub policy.Subject, id uint64) error {
	const op = "service.ReviewService.DeleteAuthorReview"
	rv, err := s.reviews.GetAuthorReview(ctx, id)
	if err != nil {
		return storeErr(op, err, "Review")
	}
	if err := policy.Check(sub, policy.Delete, policy.Target{Resource: policy.AuthorReview, OwnerID: rv.UserID}); err != nil {
		return err
	}
	if err := s.reviews.DeleteAuthorReview(ctx, id); err != nil {
		return storeErr(op, err, "Review")
	}
	s.invalidate(ctx, cache.ScopeAuthorReviews, cache.ScopeAuthors)
	s.emit(ctx, queue.EventReviewDeleted, sub.UserID, map[string]any{"kind": "author", "author_id": rv.AuthorID, "review_id": id})
	return nil
}
