package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/service"
)

type AuthorHandler struct {
	svc *service.AuthorService
}

func NewAuthorHandler(svc *service.AuthorService) *AuthorHandler {
	return &AuthorHandler{svc: svc}
}

// List godoc
// @Summary List authors with their ratings
// @Tags authors
// @Produce json
// @Param source query string false "ADMIN or TMDB"
// @Param search query string false "username, email or bio contains"
// @Param ordering query string false "date_of_birth or created_at; prefix - for descending"
// @Success 200 {object} Envelope
// @Router /authors [get]
func (h *AuthorHandler) List(c echo.Context) error {
	flt := model.AuthorFilter{
		Source:   model.Source(strings.ToUpper(strings.TrimSpace(c.QueryParam("source")))),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Ordering: strings.TrimSpace(c.QueryParam("ordering")),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.List(ctx, middleware.Subject(c), flt, pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *AuthorHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.svc.Get(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, a)
}

func (h *AuthorHandler) Create(c echo.Context) error {
	var in service.AuthorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.svc.Create(ctx, middleware.Subject(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, a)
}

func (h *AuthorHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch service.AuthorPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.svc.Update(ctx, middleware.Subject(c), id, patch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, a)
}

// Delete godoc
// @Summary Delete an author (admin)
// @Description Refused with 409 AUTHOR_HAS_FILMS while the author still has films.
// @Tags authors
// @Param id path int true "author id"
// @Success 204
// @Failure 409 {object} ErrorEnvelope
// @Router /authors/{id} [delete]
func (h *AuthorHandler) Delete(c echo.Context) error {
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
