package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/service"
)

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound("")
	}
	return id, nil
}

// queryID parses an optional numeric filter; empty means no filter.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(name, "A valid integer is required.")
	}
	return id, nil
}

// pageRequest reads page and page_size; bad values fall back to defaults.
func pageRequest(c echo.Context) service.PageRequest {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return service.PageRequest{Page: page, PageSize: size}.Normalize()
}

// bind decodes the JSON body into dst. An empty body leaves dst unchanged.
func bind(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
