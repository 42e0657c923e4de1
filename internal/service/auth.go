package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/utils"
	"github.com/mehdibennis/cinema/internal/validation"
)

type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=150,unreserved"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is a credential and its expiry.
type Token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Session is what the client receives after register, login or refresh.
type Session struct {
	User    model.User `json:"user"`
	Access  Token      `json:"access"`
	Refresh Token      `json:"refresh"`
}

var errInvalidCredentials = apperr.Unauthorized("Invalid credentials.").WithCode("INVALID_CREDENTIALS")

// AuthService issues and rotates tokens.
type AuthService struct {
	users  UserStore
	tokens TokenStore
	cfg    config.JWTConfig
	log    zerolog.Logger
}

func NewAuthService(users UserStore, tokens TokenStore, cfg config.JWTConfig, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log}
}

// Register creates a spectator account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "service.AuthService.Register"
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	u := model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         model.RoleSpectator,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return Session{}, userCreateErr(op, err)
	}
	s.log.Info().Str("op", op).Uint64("user_id", u.ID).Msg("spectator registered")
	return s.issue(ctx, op, u)
}

func userCreateErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.Validation("email", "A user with that email already exists.")
	case errors.Is(err, repository.ErrUsernameExists):
		return apperr.Validation("username", "A user with that username already exists.")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("USER_EXISTS", "A user with these credentials already exists.")
	}
	return storeErr(op, err, "User")
}

// Login accepts a username or an email address.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	const op = "service.AuthService.Login"
	if err := validation.Struct(in); err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByLogin(ctx, in.Login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, errInvalidCredentials
		}
		return Session{}, storeErr(op, err, "User")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return Session{}, errInvalidCredentials
	}
	return s.issue(ctx, op, u)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	const op = "service.AuthService.Refresh"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, apperr.Validation("refresh_token", "This field is required.")
	}
	hash := utils.HashRefreshRaw(raw)
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized("Invalid refresh token.").WithCode("INVALID_REFRESH")
		}
		return Session{}, storeErr(op, err, "Token")
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return Session{}, storeErr(op, err, "Token")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.Unauthorized("Invalid refresh token.").WithCode("INVALID_REFRESH")
		}
		return Session{}, storeErr(op, err, "User")
	}
	if !u.IsActive {
		return Session{}, errInvalidCredentials
	}
	return s.issue(ctx, op, u)
}

// Logout revokes one refresh token, or every token of userID when raw is
// empty. At least one of them must be given.
func (s *AuthService) Logout(ctx context.Context, userID uint64, raw string) error {
	const op = "service.AuthService.Logout"
	raw = strings.TrimSpace(raw)
	switch {
	case raw != "":
		hash := utils.HashRefreshRaw(raw)
		if _, err := s.tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Unauthorized("Invalid refresh token.").WithCode("INVALID_REFRESH")
			}
			return storeErr(op, err, "Token")
		}
		if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
			return storeErr(op, err, "Token")
		}
	case userID != 0:
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return storeErr(op, err, "Token")
		}
	default:
		return apperr.Validation("refresh_token", "Provide a refresh token or an access token.")
	}
	return nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, sub policy.Subject) (model.User, error) {
	const op = "service.AuthService.Me"
	if !sub.Authenticated() {
		return model.User{}, apperr.PermissionDenied("Authentication credentials were not provided.").WithCode(policy.CodeNotAuthenticated)
	}
	u, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return model.User{}, storeErr(op, err, "User")
	}
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, op string, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("%s: access token: %w", op, err))
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("%s: refresh token: %w", op, err))
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, storeErr(op, err, "Token")
	}
	return Session{
		User:    u,
		Access:  Token{Token: access.Token, Expires: access.Exp},
		Refresh: Token{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
