package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/middleware"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/repository"
	"github.com/mehdibennis/cinema/internal/service"
	"github.com/mehdibennis/cinema/internal/utils"
)

const secret = "handler-secret"

type stubFilms struct {
	films map[uint64]model.Film
}

func (s *stubFilms) List(_ context.Context, flt model.FilmFilter) ([]model.Film, int64, error) {
	var out []model.Film
	for _, f := range s.films {
		if flt.PublishedOnly && f.Status != model.FilmPublished {
			continue
		}
		out = append(out, f)
	}
	return out, int64(len(out)), nil
}

func (s *stubFilms) GetByID(_ context.Context, id uint64) (model.Film, error) {
	f, ok := s.films[id]
	if !ok {
		return model.Film{}, repository.ErrNotFound
	}
	return f, nil
}

func (s *stubFilms) Create(context.Context, *model.Film) error { return errors.New("not used") }
func (s *stubFilms) Update(context.Context, *model.Film) error { return errors.New("not used") }
func (s *stubFilms) Delete(context.Context, uint64) error      { return errors.New("not used") }
func (s *stubFilms) SetStatus(_ context.Context, id uint64, st model.FilmStatus) error {
	f := s.films[id]
	f.Status = st
	s.films[id] = f
	return nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	return e
}

func filmServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := &stubFilms{films: map[uint64]model.Film{
		1: {ID: 1, Title: "Published", Status: model.FilmPublished, AuthorID: 1, AuthorUserID: 10},
		2: {ID: 2, Title: "Draft", Status: model.FilmDraft, AuthorID: 1, AuthorUserID: 10},
	}}
	svc := service.NewFilmService(store, nil, nil, nil, zerolog.Nop())
	h := NewFilmHandler(svc)

	e := newEcho()
	g := e.Group("/api", middleware.OptionalAuth(secret))
	g.GET("/films", h.List)
	g.GET("/films/:id", h.Get)
	g.POST("/films/:id/archive", h.Archive)
	return e
}

func do(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, uid uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	return env
}

func TestFilmListHidesDraftsFromAnonymous(t *testing.T) {
	e := filmServer(t)

	rec := do(e, http.MethodGet, "/api/films", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Success bool                   `json:"success"`
		Data    model.Page[model.Film] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.EqualValues(t, 1, env.Data.Total)

	rec = do(e, http.MethodGet, "/api/films", "", bearer(t, 1, model.RoleAdmin))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.EqualValues(t, 2, env.Data.Total)
}

func TestFilmGetStatuses(t *testing.T) {
	e := filmServer(t)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/films/1", "", "").Code)

	rec := do(e, http.MethodGet, "/api/films/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)

	rec = do(e, http.MethodGet, "/api/films/abc", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/films/2", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, policy.CodeNotAuthenticated, decodeError(t, rec).Error.Code)

	rec = do(e, http.MethodGet, "/api/films/2", "", bearer(t, 4, model.RoleSpectator))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/api/films/1", "", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFilmArchiveRequiresAdmin(t *testing.T) {
	e := filmServer(t)

	rec := do(e, http.MethodPost, "/api/films/1/archive", "", bearer(t, 10, model.RoleAuthor))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/api/films/1/archive", "", bearer(t, 1, model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"archived"`)
	assert.Contains(t, rec.Body.String(), "Film archived.")
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *apperr.Error
		want int
	}{
		{apperr.Validation("rating", "bad"), http.StatusBadRequest},
		{apperr.Unauthorized("who"), http.StatusUnauthorized},
		{apperr.PermissionDenied("no"), http.StatusForbidden},
		{apperr.PermissionDenied("no").WithCode(policy.CodeNotAuthenticated), http.StatusUnauthorized},
		{apperr.NotFound(""), http.StatusNotFound},
		{apperr.DuplicateReview(""), http.StatusConflict},
		{apperr.Conflict("X", "x"), http.StatusConflict},
		{apperr.Integrity("AUTHOR_HAS_FILMS", "x"), http.StatusConflict},
		{apperr.External("tmdb", errors.New("down")), http.StatusBadGateway},
		{apperr.Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Kind.String())
	}
}

func TestErrorHandlerEnvelope(t *testing.T) {
	e := newEcho()
	e.GET("/validation", func(echo.Context) error {
		return apperr.Validation("rating", "Ensure this value is between 1 and 5.")
	})
	e.GET("/boom", func(echo.Context) error { return errors.New("secret detail") })
	e.POST("/body", func(c echo.Context) error {
		var req filmReviewReq
		if err := bind(c, &req); err != nil {
			return err
		}
		return ok(c, http.StatusOK, req)
	})

	rec := do(e, http.MethodGet, "/validation", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.FieldErrors, "rating")

	rec = do(e, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")

	rec = do(e, http.MethodGet, "/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)

	rec = do(e, http.MethodPost, "/body", `{"film": 1, "rating": 4`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PARSE_ERROR", decodeError(t, rec).Error.Code)

	rec = do(e, http.MethodPost, "/body", `{"film": "one"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/body", `{"film": 3, "rating": 5}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rating":5`)
}

func TestPageRequestDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=x&page_size=500", nil), httptest.NewRecorder())
	p := pageRequest(c)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, service.MaxPageSize, p.PageSize)
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewHealthHandler(db, rdb)
	e := newEcho()
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
	e.GET("/live", h.Live)

	mock.ExpectPing()
	rec := do(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	rec = do(e, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/live", "", "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthWithoutCache(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	e := newEcho()
	e.GET("/health", NewHealthHandler(db, nil).Health)
	mock.ExpectPing()
	rec := do(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"disabled"`)
}
