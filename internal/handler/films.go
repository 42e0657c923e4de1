package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/service"
)

type FilmHandler struct {
	svc *service.FilmService
}

func NewFilmHandler(svc *service.FilmService) *FilmHandler {
	return &FilmHandler{svc: svc}
}

// List godoc
// @Summary List films
// @Description Anonymous callers and spectators only see published films.
// @Tags films
// @Produce json
// @Param status query string false "draft, published or archived"
// @Param evaluation query string false "G, PG, PG-13, R or NC-17"
// @Param source query string false "ADMIN or TMDB"
// @Param author query int false "author id"
// @Param search query string false "title or description contains"
// @Param ordering query string false "release_date, created_at, average_rating, title; prefix - for descending"
// @Param page query int false "page number"
// @Param page_size query int false "page size (max 100)"
// @Success 200 {object} Envelope
// @Router /films [get]
func (h *FilmHandler) List(c echo.Context) error {
	authorID, err := queryID(c, "author")
	if err != nil {
		return err
	}
	flt := model.FilmFilter{
		Status:     model.FilmStatus(strings.TrimSpace(c.QueryParam("status"))),
		Evaluation: model.Evaluation(strings.TrimSpace(c.QueryParam("evaluation"))),
		Source:     model.Source(strings.ToUpper(strings.TrimSpace(c.QueryParam("source")))),
		AuthorID:   authorID,
		Search:     strings.TrimSpace(c.QueryParam("search")),
		Ordering:   strings.TrimSpace(c.QueryParam("ordering")),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.List(ctx, middleware.Subject(c), flt, pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

// Get godoc
// @Summary Get a film with its rating
// @Tags films
// @Produce json
// @Param id path int true "film id"
// @Success 200 {object} Envelope
// @Failure 404 {object} ErrorEnvelope
// @Router /films/{id} [get]
func (h *FilmHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.svc.Get(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, f)
}

func (h *FilmHandler) Create(c echo.Context) error {
	var in service.FilmInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.svc.Create(ctx, middleware.Subject(c), in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, f)
}

func (h *FilmHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch service.FilmPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.svc.Update(ctx, middleware.Subject(c), id, patch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, f)
}

func (h *FilmHandler) Delete(c echo.Context) error {
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

// Archive godoc
// @Summary Archive a film (admin)
// @Tags films
// @Produce json
// @Param id path int true "film id"
// @Success 200 {object} Envelope
// @Failure 403 {object} ErrorEnvelope
// @Router /films/{id}/archive [post]
func (h *FilmHandler) Archive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	f, err := h.svc.Archive(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return okMessage(c, http.StatusOK, f, "Film archived.")
}
