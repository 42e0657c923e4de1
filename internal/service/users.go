package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/utils"
	"github.com/mehdibennis/cinema/internal/validation"
)

type UserInput struct {
	Username  string `json:"username" validate:"required,min=3,max=150,unreserved"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Role      string `json:"role" validate:"required,oneof=admin author spectator"`
}

// UserService is the admin-only user management surface.
type UserService struct {
	base
	users      UserStore
	bcryptCost int
}

func NewUserService(users UserStore, bcryptCost int, inv Invalidator, log zerolog.Logger) *UserService {
	return &UserService{base: newBase(nil, inv, log), users: users, bcryptCost: bcryptCost}
}

func (s *UserService) List(ctx context.Context, sub policy.Subject, p PageRequest) (model.Page[model.User], error) {
	const op = "service.UserService.List"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.User}); err != nil {
		return model.Page[model.User]{}, err
	}
	p = p.Normalize()
	users, total, err := s.users.List(ctx, p.PageSize, p.Offset())
	if err != nil {
		return model.Page[model.User]{}, storeErr(op, err, "User")
	}
	return page(users, total, p), nil
}

func (s *UserService) Get(ctx context.Context, sub policy.Subject, id uint64) (model.User, error) {
	const op = "service.UserService.Get"
	if err := policy.Check(sub, policy.Read, policy.Target{Resource: policy.User}); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr(op, err, "User")
	}
	return u, nil
}

// Create adds a user of any role along with the matching profile.
func (s *UserService) Create(ctx context.Context, sub policy.Subject, in UserInput) (model.User, error) {
	const op = "service.UserService.Create"
	if err := policy.Check(sub, policy.Create, policy.Target{Resource: policy.User}); err != nil {
		return model.User{}, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return model.User{}, err
	}
	role, _ := model.ParseRole(in.Role)
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	u := model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, userCreateErr(op, err)
	}
	s.log.Info().Str("op", op).Uint64("user_id", u.ID).Str("role", role.String()).Msg("user created")
	switch role {
	case model.RoleAuthor:
		s.invalidate(ctx, cache.ScopeAuthors)
	case model.RoleSpectator:
		s.invalidate(ctx, cache.ScopeSpectators)
	}
	return u, nil
}

// Delete removes a user. Profiles, reviews and tokens go with it; an author
// who still owns films cannot be deleted.
func (s *UserService) Delete(ctx context.Context, sub policy.Subject, id uint64) error {
	const op = "service.UserService.Delete"
	if err := policy.Check(sub, policy.Delete, policy.Target{Resource: policy.User}); err != nil {
		return err
	}
	if id == sub.UserID {
		return apperr.Conflict("SELF_DELETE", "You cannot delete your own account.")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProtected) {
			return apperr.Integrity(CodeAuthorHasFilms, "Cannot delete this user because their author profile still has films.")
		}
		return storeErr(op, err, "User")
	}
	s.invalidate(ctx, cache.ScopeAuthors, cache.ScopeSpectators, cache.ScopeFilmReviews, cache.ScopeAuthorReviews, cache.ScopeFilms)
	return nil
}
