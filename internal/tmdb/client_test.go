package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehdibennis/cinema/internal/config"
)

func testConfig(url string) config.TMDBConfig {
	return config.TMDBConfig{
		APIKey:            "k",
		BaseURL:           url,
		ImageBaseURL:      "https://img.example/t/p/w500/",
		Language:          "fr-FR",
		Timeout:           2 * time.Second,
		RequestsPerSecond: 0,
		Burst:             1,
	}
}

func TestPopularMovies_Pages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/popular", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		assert.Equal(t, "fr-FR", r.URL.Query().Get("language"))
		page := r.URL.Query().Get("page")
		base := 0
		if page == "2" {
			base = 2
		}
		fmt.Fprintf(w, `{"page":%s,"total_pages":5,"results":[{"id":%d,"title":"m%d"},{"id":%d,"title":"m%d"}]}`,
			page, base+1, base+1, base+2, base+2)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	movies, err := c.PopularMovies(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, movies, 3)
	assert.Equal(t, int64(3), movies[2].ID)
}

func TestCreditsAndPerson(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/42/credits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":42,"crew":[{"id":7,"name":"Someone","job":"Producer"},{"id":9,"name":"Denis Villeneuve","job":"Director","profile_path":"/dv.jpg"}]}`)
	})
	mux.HandleFunc("/person/9", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":9,"name":"Denis Villeneuve","birthday":"1967-10-03","biography":"Canadian director."}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	cr, err := c.Credits(context.Background(), 42)
	require.NoError(t, err)
	d, ok := cr.Director()
	require.True(t, ok)
	assert.Equal(t, int64(9), d.ID)

	p, err := c.Person(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "1967-10-03", p.Birthday)

	assert.Equal(t, "https://img.example/t/p/w500/dv.jpg", c.ImageURL(d.ProfilePath))
	assert.Empty(t, c.ImageURL(""))
}

func TestStatusErrorAndBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), zerolog.Nop())
	for i := 0; i < 5; i++ {
		_, err := c.Person(context.Background(), 1)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.Status)
	}
	_, err := c.Person(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 5, calls, "open breaker must not reach the server")
}

func TestNoAPIKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	c := NewClient(cfg, zerolog.Nop())
	assert.False(t, c.Enabled())
	_, err := c.PopularMovies(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}
