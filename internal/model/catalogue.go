package model

import "time"

// Source records where a film or author came from.
type Source string

const (
	SourceAdmin Source = "ADMIN"
	SourceTMDB  Source = "TMDB"
)

// Evaluation is the audience classification of a film.
type Evaluation string

const (
	EvaluationG    Evaluation = "G"
	EvaluationPG   Evaluation = "PG"
	EvaluationPG13 Evaluation = "PG-13"
	EvaluationR    Evaluation = "R"
	EvaluationNC17 Evaluation = "NC-17"
)

// FilmStatus controls visibility: only published films are shown to
// spectators and anonymous visitors.
type FilmStatus string

const (
	FilmDraft     FilmStatus = "draft"
	FilmPublished FilmStatus = "published"
	FilmArchived  FilmStatus = "archived"
)

// Author is an author profile joined with its user account and its
// read-time rating aggregate.
type Author struct {
	ID            uint64     `json:"id"`
	UserID        uint64     `json:"user_id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	Bio           string     `json:"bio"`
	TMDBID        *int64     `json:"tmdb_id"`
	Source        Source     `json:"source"`
	PhotoURL      string     `json:"photo_url"`
	AverageRating *float64   `json:"average_rating"`
	ReviewsCount  int64      `json:"reviews_count"`
	Films         []Film     `json:"films,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Film is a catalogue entry. AuthorUserID is the user owning the author
// profile and drives ownership checks.
type Film struct {
	ID            uint64     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ReleaseDate   *time.Time `json:"release_date"`
	Evaluation    Evaluation `json:"evaluation"`
	Status        FilmStatus `json:"status"`
	Source        Source     `json:"source"`
	TMDBID        *int64     `json:"tmdb_id"`
	PosterURL     string     `json:"poster_url"`
	AuthorID      uint64     `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	AuthorUserID  uint64     `json:"-"`
	AverageRating *float64   `json:"average_rating"`
	ReviewsCount  int64      `json:"reviews_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FilmFilter narrows film listings. Empty fields do not filter.
type FilmFilter struct {
	Status        FilmStatus
	Evaluation    Evaluation
	Source        Source
	AuthorID      uint64
	Search        string
	Ordering      string
	PublishedOnly bool
	Limit         int
	Offset        int
}

// AuthorFilter narrows author listings.
type AuthorFilter struct {
	Source   Source
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

// Page is one page of a listing along with the total number of matches.
type Page[T any] struct {
	Items    []T   `json:"results"`
	Total    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}
