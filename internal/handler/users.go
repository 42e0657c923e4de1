package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/service"
)

// UserHandler is the admin-only user management surface.
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.List(ctx, middleware.Subject(c), pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.svc.Get(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, u)
}

func (h *UserHandler) Create(c echo.Context) error {
	var in service.UserInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.svc.Create(ctx, middleware.Subject(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Delete(ctx, middleware.Subject(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
