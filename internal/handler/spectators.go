package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/service"
)

type SpectatorHandler struct {
	svc *service.SpectatorService
}

func NewSpectatorHandler(svc *service.SpectatorService) *SpectatorHandler {
	return &SpectatorHandler{svc: svc}
}

type favoriteReq struct {
	FilmID uint64 `json:"film_id"`
}

func (h *SpectatorHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.svc.List(ctx, middleware.Subject(c), pageRequest(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, page)
}

func (h *SpectatorHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.svc.Get(ctx, middleware.Subject(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sp)
}

func (h *SpectatorHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.svc.Me(ctx, middleware.Subject(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sp)
}

func (h *SpectatorHandler) UpdateMe(c echo.Context) error {
	var patch service.SpectatorPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sp, err := h.svc.UpdateMe(ctx, middleware.Subject(c), patch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, sp)
}

// Favorites godoc
// @Summary List the caller's favourite films in the order they were added
// @Tags spectators
// @Produce json
// @Success 200 {object} Envelope
// @Failure 403 {object} ErrorEnvelope
// @Router /spectators/favorites [get]
func (h *SpectatorHandler) Favorites(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	favs, err := h.svc.ListFavorites(ctx, middleware.Subject(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, favs)
}

// AddFavorite godoc
// @Summary Add a film to the caller's favourites
// @Description Adding a film twice is not an error.
// @Tags spectators
// @Accept json
// @Produce json
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorEnvelope
// @Failure 404 {object} ErrorEnvelope
// @Router /spectators/favorites/add [post]
func (h *SpectatorHandler) AddFavorite(c echo.Context) error {
	var req favoriteReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.svc.AddFavorite(ctx, middleware.Subject(c), req.FilmID)
	if err != nil {
		return err
	}
	msg := "Film added to favorites."
	if !res.Changed {
		msg = "Film already in favorites."
	}
	return okMessage(c, http.StatusOK, res, msg)
}

func (h *SpectatorHandler) RemoveFavorite(c echo.Context) error {
	var req favoriteReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.svc.RemoveFavorite(ctx, middleware.Subject(c), req.FilmID)
	if err != nil {
		return err
	}
	msg := "Film removed from favorites."
	if !res.Changed {
		msg = "Film was not in favorites."
	}
	return okMessage(c, http.StatusOK, res, msg)
}
