package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/cache"
	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/model"
	"github.com/mehdibennis/cinema/internal/policy"
	"github.com/mehdibennis/cinema/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, uid uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func run(e *echo.Echo, mw echo.MiddlewareFunc, req *http.Request, h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(h)(c)
}

func TestOptionalAuth(t *testing.T) {
	e := echo.New()
	var got policy.Subject
	h := func(c echo.Context) error { got = Subject(c); return c.NoContent(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := run(e, OptionalAuth(secret), req, h)
	require.NoError(t, err)
	assert.False(t, got.Authenticated())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 7, model.RoleSpectator))
	_, err = run(e, OptionalAuth(secret), req, h)
	require.NoError(t, err)
	assert.Equal(t, policy.Subject{UserID: 7, Role: model.RoleSpectator}, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	_, err = run(e, OptionalAuth(secret), req, h)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	tok, err := utils.NewAccessToken("other-secret", 7, model.RoleAdmin, 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	_, err = run(e, OptionalAuth(secret), req, h)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := run(e, JWTAuth(secret), req, ok)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, policy.CodeNotAuthenticated, ae.Code)

	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		return JWTAuth(secret)(RequireRole(model.RoleAdmin)(next))
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 3, model.RoleAuthor))
	_, err = run(e, chain, req, ok)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 1, model.RoleAdmin))
	rec, err := run(e, chain, req, ok)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		TTL:          900 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "test",
		MaxBodyBytes: 1 << 20,
		Methods:      map[string]bool{http.MethodGet: true},
	}
}

func TestResponseCache_KeyedByQueryAndIdentity(t *testing.T) {
	mr, rdb := newRedis(t)
	versions := cache.NewVersions(rdb, "test", true, zerolog.Nop())
	e := echo.New()
	calls := 0
	e.GET("/films", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]any{"n": calls})
	}, OptionalAuth(secret), ResponseCache(cacheConfig(), rdb, versions, cache.ScopeFilms, zerolog.Nop()))

	do := func(query, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/films"+query, nil)
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := do("?page=1", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do("?page=1", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, "MISS", do("?page=2", "").Header().Get("X-Cache"))
	assert.Equal(t, "MISS", do("?page=1", bearer(t, 9, model.RoleSpectator)).Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.Equal(t, 900*time.Second, mr.TTL(keys[0]))

	versions.Invalidate(context.Background(), cache.ScopeFilms)
	assert.Equal(t, "MISS", do("?page=1", "").Header().Get("X-Cache"))
	assert.Equal(t, 4, calls)
}

func TestCacheKey_IdentityInEveryStrategy(t *testing.T) {
	e := echo.New()
	key := func(strategy string, sub policy.Subject) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/films?page=1", nil), httptest.NewRecorder())
		c.SetPath("/films")
		if sub.Authenticated() {
			c.Set(subjectKey, sub)
		}
		return cacheKey(config.CacheConfig{Prefix: "t", KeyStrategy: strategy}, c, cache.ScopeFilms, 1)
	}
	alice := policy.Subject{UserID: 3, Role: model.RoleSpectator}
	for _, strategy := range []string{"route", "method_route_query", "route_query", "shared"} {
		anon := key(strategy, policy.Anonymous())
		assert.Equal(t, anon, key(strategy, policy.Anonymous()), strategy)
		assert.NotEqual(t, anon, key(strategy, alice), strategy)
	}
}

func TestResponseCache_SkipsErrorsAndWrites(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	calls := 0
	mw := ResponseCache(cacheConfig(), rdb, nil, cache.ScopeFilms, zerolog.Nop())
	e.GET("/missing", func(c echo.Context) error { calls++; return c.NoContent(http.StatusNotFound) }, mw)
	e.POST("/films", func(c echo.Context) error { calls++; return c.NoContent(http.StatusCreated) }, mw)

	for i := 0; i < 2; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/films", nil))
	}
	assert.Equal(t, 4, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, 200, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRateLimit(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1,
		RefillInterval: time.Minute, TTL: 10 * time.Minute,
		KeyStrategy: "ip", Prefix: "rl",
	}
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, zerolog.Nop()))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
