package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/service"
)

// AuthHandler serves registration, login and token rotation.
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @Summary Register a spectator account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.RegisterInput true "account"
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorEnvelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sess, err := h.svc.Register(ctx, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, sess)
}

// Login godoc
// @Summary Log in with username or email
// @Tags auth
// @Accept json
// @Produce json
// @Param body body service.LoginInput true "credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} ErrorEnvelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sess, err := h.svc.Login(ctx, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sess)
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sess, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sess)
}

// Logout revokes the refresh token in the body or, without one, every
// refresh token of the bearer.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Logout(ctx, middleware.Subject(c).UserID, req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.svc.Me(ctx, middleware.Subject(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, u)
}
