package model

import "time"

// Genre is a spectator's favourite genre.
type Genre string

var Genres = []Genre{
	"action", "comedy", "drama", "horror", "scifi",
	"romance", "thriller", "animation", "documentary", "fantasy",
}

// ValidGenre accepts the empty genre and the fixed list above.
func ValidGenre(g Genre) bool {
	if g == "" {
		return true
	}
	for _, v := range Genres {
		if v == g {
			return true
		}
	}
	return false
}

// Spectator is a spectator profile joined with its user account.
type Spectator struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	FavoriteGenre Genre     `json:"favorite_genre"`
	Bio           string    `json:"bio"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Favorite is a film a spectator bookmarked, in the order it was added.
type Favorite struct {
	Film    Film      `json:"film"`
	AddedAt time.Time `json:"added_at"`
}
