// Package service holds the business operations behind the HTTP API. Every
// operation checks the access policy before touching storage and returns
// *apperr.Error values the handlers can render.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/queue"
	"github.com/mehdibennis/cinema/internal/repository"
)

type FilmStore interface {
	List(ctx context.Context, flt model.FilmFilter) ([]model.Film, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Film, error)
	Create(ctx context.Context, f *model.Film) error
	Update(ctx context.Context, f *model.Film) error
	SetStatus(ctx context.Context, id uint64, status model.FilmStatus) error
	Delete(ctx context.Context, id uint64) error
}

type AuthorStore interface {
	List(ctx context.Context, flt model.AuthorFilter) ([]model.Author, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Author, error)
	GetByUserID(ctx context.Context, userID uint64) (model.Author, error)
	Create(ctx context.Context, a *model.Author) error
	Update(ctx context.Context, a *model.Author) error
	Delete(ctx context.Context, id uint64) error
}

type ReviewStore interface {
	CreateFilmReview(ctx context.Context, userID, filmID uint64, rating int, comment string) (model.FilmReview, error)
	GetFilmReview(ctx context.Context, id uint64) (model.FilmReview, error)
	ListFilmReviews(ctx context.Context, filmID uint64, publishedOnly bool, limit, offset int) ([]model.FilmReview, int64, error)
	DeleteFilmReview(ctx context.Context, id uint64) error
	CreateAuthorReview(ctx context.Context, userID, authorID uint64, rating int, comment string) (model.AuthorReview, error)
	GetAuthorReview(ctx context.Context, id uint64) (model.AuthorReview, error)
	ListAuthorReviews(ctx context.Context, authorID uint64, limit, offset int) ([]model.AuthorReview, int64, error)
	DeleteAuthorReview(ctx context.Context, id uint64) error
}

type SpectatorStore interface {
	GetByID(ctx context.Context, id uint64) (model.Spectator, error)
	GetByUserID(ctx context.Context, userID uint64) (model.Spectator, error)
	List(ctx context.Context, limit, offset int) ([]model.Spectator, int64, error)
	Update(ctx context.Context, sp *model.Spectator) error
	AddFavorite(ctx context.Context, spectatorID, filmID uint64) (bool, error)
	RemoveFavorite(ctx context.Context, spectatorID, filmID uint64) (bool, error)
	ListFavorites(ctx context.Context, spectatorID uint64) ([]model.Favorite, error)
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByLogin(ctx context.Context, login string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, int64, error)
	Delete(ctx context.Context, id uint64) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// EventPublisher sends activity events; failures never fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Invalidator drops cached listings for the named scopes.
type Invalidator interface {
	Invalidate(ctx context.Context, scopes ...string)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, ...string) {}

// base carries the side-channel collaborators shared by every service.
type base struct {
	events EventPublisher
	cache  Invalidator
	log    zerolog.Logger
}

func newBase(events EventPublisher, cache Invalidator, log zerolog.Logger) base {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	return base{events: events, cache: cache, log: log}
}

func (b base) emit(ctx context.Context, typ string, actor uint64, data map[string]any) {
	ev := queue.NewEvent(typ, actor, data)
	if err := b.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		b.log.Debug().Err(err).Str("type", typ).Msg("event dropped")
	}
}

func (b base) invalidate(ctx context.Context, scopes ...string) {
	b.cache.Invalidate(context.WithoutCancel(ctx), scopes...)
}

// PageRequest is a 1-based page number and page size.
type PageRequest struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

func page[T any](items []T, total int64, p PageRequest) model.Page[T] {
	if items == nil {
		items = []T{}
	}
	return model.Page[T]{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}
}

// storeErr translates repository sentinels into the error taxonomy.
func storeErr(op string, err error, what string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(what + " not found.")
	case errors.Is(err, repository.ErrProtected):
		return apperr.Integrity("PROTECTED", what+" is still referenced by other records.")
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
