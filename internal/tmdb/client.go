// Package tmdb is a small client for the TMDb v3 API covering what the
// catalogue import needs: popular movies, their credits and people.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mehdibennis/cinema/internal/config"
	"github.com/mehdibennis/cinema/internal/metrics"
)

// ErrNoAPIKey is returned by every call when no API key is configured.
var ErrNoAPIKey = errors.New("tmdb: api key not configured")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: %s returned status %d", e.Endpoint, e.Status)
}

type Movie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
	Adult       bool   `json:"adult"`
}

type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Crew []CrewMember `json:"crew"`
}

// Director returns the first crew member credited as director.
func (c Credits) Director() (CrewMember, bool) {
	for _, m := range c.Crew {
		if m.Job == "Director" {
			return m, true
		}
	}
	return CrewMember{}, false
}

type Person struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Birthday    string `json:"birthday"`
	Biography   string `json:"biography"`
	ProfilePath string `json:"profile_path"`
}

type moviePage struct {
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Results    []Movie `json:"results"`
}

// Client calls the API through a rate limiter and a circuit breaker so a
// failing upstream stops the import quickly instead of timing out per call.
type Client struct {
	http     *http.Client
	base     string
	images   string
	apiKey   string
	language string
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[[]byte]
	log      zerolog.Logger
}

func NewClient(cfg config.TMDBConfig, log zerolog.Logger) *Client {
	rps := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		rps = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	const cbName = "tmdb"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// 404s are answers, not upstream failures.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Status == http.StatusNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		images:   strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		limiter:  rate.NewLimiter(rps, burst),
		cb:       cb,
		log:      log,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// ImageURL turns a TMDb image path into an absolute URL. Empty stays empty.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.images + "/" + strings.TrimLeft(path, "/")
}

// PopularMovies returns up to limit movies from the popular list, paging as
// needed.
func (c *Client) PopularMovies(ctx context.Context, limit int) ([]Movie, error) {
	var out []Movie
	for page := 1; len(out) < limit; page++ {
		var p moviePage
		q := url.Values{"language": {c.language}, "page": {strconv.Itoa(page)}}
		if err := c.get(ctx, "movie/popular", "/movie/popular", q, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		if len(p.Results) == 0 || page >= p.TotalPages {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) Credits(ctx context.Context, movieID int64) (Credits, error) {
	var cr Credits
	err := c.get(ctx, "movie/credits", fmt.Sprintf("/movie/%d/credits", movieID), nil, &cr)
	return cr, err
}

func (c *Client) Person(ctx context.Context, personID int64) (Person, error) {
	var p Person
	err := c.get(ctx, "person", fmt.Sprintf("/person/%d", personID), url.Values{"language": {c.language}}, &p)
	return p, err
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, dst any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, c.base+path+"?"+q.Encode())
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, u string) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.TMDBRequestDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("tmdb: read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("tmdb request failed")
		return nil, &StatusError{Endpoint: endpoint, Status: resp.StatusCode}
	}
	return body, nil
}
