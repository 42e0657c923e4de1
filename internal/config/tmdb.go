package config

import "time"

// TMDBConfig configures the outbound movie-metadata client used by the importer.
type TMDBConfig struct {
	APIKey       string        `env:"TMDB_API_KEY"`
	BaseURL      string        `env:"TMDB_BASE_URL" env-default:"https://api.themoviedb.org/3"`
	ImageBaseURL string        `env:"TMDB_IMAGE_BASE_URL" env-default:"https://image.tmdb.org/t/p/w500"`
	Language     string        `env:"TMDB_LANGUAGE" env-default:"fr-FR"`
	Timeout      time.Duration `env:"TMDB_TIMEOUT" env-default:"10s"`
	// RequestsPerSecond caps outbound calls; TMDb allows roughly 40/s.
	RequestsPerSecond float64 `env:"TMDB_RPS" env-default:"20"`
	Burst             int     `env:"TMDB_BURST" env-default:"5"`
	ImportLimit       int     `env:"TMDB_IMPORT_LIMIT" env-default:"10"`
}
