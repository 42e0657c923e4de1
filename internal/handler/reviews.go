package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/service"
)

// ReviewHandler serves both film reviews and author reviews.
type ReviewHandler struct {
	svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type filmReviewReq struct {
	Film    uint64 `json:"film"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type authorReviewReq struct {
	Author  uint64 `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ListFilm godoc
// @Summary List film reviews
// @Tags reviews
// @Produce json
// @Param film query int false "film id"
// @Success 200 {object} Envelope
// @Router /reviews [get]
func (h *ReviewHandler) ListFilm(c echo.Context) error {
	filmID, err := queryID(c, "film")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.ListFilmReviews(ctx, middleware.Subject(c), filmID, pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *ReviewHandler) GetFilm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rv, err := h.svc.GetFilmReview(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, rv)
}

// CreateFilm godoc
// @Summary Review a film (spectators)
// @Tags reviews
// @Accept json
// @Produce json
// @Success 201 {object} Envelope
// @Failure 400 {object} ErrorEnvelope
// @Failure 403 {object} ErrorEnvelope
// @Failure 409 {object} ErrorEnvelope "already reviewed"
// @Router /reviews [post]
func (h *ReviewHandler) CreateFilm(c echo.Context) error {
	var req filmReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Film == 0 {
		return apperr.Validation("film", "This field is required.")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rv, err := h.svc.AddFilmReview(ctx, middleware.Subject(c), req.Film, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, rv)
}

func (h *ReviewHandler) DeleteFilm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.DeleteFilmReview(ctx, middleware.Subject(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) ListAuthor(c echo.Context) error {
	authorID, err := queryID(c, "author")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.ListAuthorReviews(ctx, middleware.Subject(c), authorID, pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *ReviewHandler) GetAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rv, err := h.svc.GetAuthorReview(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, rv)
}

func (h *ReviewHandler) CreateAuthor(c echo.Context) error {
	var req authorReviewReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Author == 0 {
		return apperr.Validation("author", "This field is required.")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rv, err := h.svc.AddAuthorReview(ctx, middleware.Subject(c), req.Author, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, rv)
}

func (h *ReviewHandler) DeleteAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.DeleteAuthorReview(ctx, middleware.Subject(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
