package model

import "time"

// Role is the closed set of user roles. RoleAnonymous is the zero value and
// describes an unauthenticated caller; it is never stored.
type Role string

const (
	RoleAnonymous Role = ""
	RoleAdmin     Role = "admin"
	RoleAuthor    Role = "author"
	RoleSpectator Role = "spectator"
)

// ImportedUsernamePrefix marks accounts created by the TMDb import. It is
// reserved and cannot be chosen at registration.
const ImportedUsernamePrefix = "tmdb_"

// ParseRole accepts the stored role names only.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleAuthor, RoleSpectator:
		return r, true
	default:
		return RoleAnonymous, false
	}
}

func (r Role) String() string {
	if r == RoleAnonymous {
		return "anonymous"
	}
	return string(r)
}

// User represents a row of the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hash, never serialized.
//	Role         – one of admin, author, spectator.
//	IsActive     – inactive users cannot log in.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
