// Package policy decides whether a caller may perform an action on a
// resource. Decisions depend only on the caller's role and identity and the
// target's kind, owner and publication state.
package policy

import (
	"fmt"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
)

type Action int

const (
	Read Action = iota
	Create
	Update
	Delete
	// Archive changes a film's publication state; only admins hold it.
	Archive
)

func (a Action) String() string {
	switch a {
	case Read:
		return "read"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Archive:
		return "archive"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type Resource int

const (
	Film Resource = iota
	Author
	FilmReview
	AuthorReview
	Favorite
	Spectator
	User
)

func (r Resource) String() string {
	switch r {
	case Film:
		return "film"
	case Author:
		return "author"
	case FilmReview:
		return "film_review"
	case AuthorReview:
		return "author_review"
	case Favorite:
		return "favorite"
	case Spectator:
		return "spectator"
	case User:
		return "user"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// Subject is the caller. The zero value is an anonymous visitor.
type Subject struct {
	UserID uint64
	Role   model.Role
}

func Anonymous() Subject { return Subject{} }

func (s Subject) Authenticated() bool { return s.Role != model.RoleAnonymous && s.UserID != 0 }

// Target describes the object acted on. OwnerID is the user id owning it
// (the film's author user, the review's spectator, the profile's user) and
// is zero for collections and creations.
type Target struct {
	Resource  Resource
	OwnerID   uint64
	Published bool
}

func (t Target) ownedBy(s Subject) bool { return t.OwnerID != 0 && t.OwnerID == s.UserID }

// Allowed is the whole rule table.
func Allowed(s Subject, a Action, t Target) bool {
	switch s.Role {
	case model.RoleAdmin:
		return s.Authenticated()
	case model.RoleAuthor:
		return s.Authenticated() && author(s, a, t)
	case model.RoleSpectator:
		return s.Authenticated() && spectator(s, a, t)
	case model.RoleAnonymous:
		return anonymous(a, t)
	default:
		return false
	}
}

func author(s Subject, a Action, t Target) bool {
	switch t.Resource {
	case Film:
		switch a {
		case Read, Create:
			return true
		case Update, Delete:
			return t.ownedBy(s)
		}
	case Author:
		switch a {
		case Read:
			return true
		case Update:
			return t.ownedBy(s)
		}
	case FilmReview, AuthorReview, Spectator:
		return a == Read
	case Favorite, User:
		return false
	}
	return false
}

func spectator(s Subject, a Action, t Target) bool {
	switch t.Resource {
	case Film:
		return a == Read && t.Published
	case Author:
		return a == Read
	case FilmReview, AuthorReview:
		switch a {
		case Read, Create:
			return true
		case Delete:
			return t.ownedBy(s)
		}
	case Favorite:
		switch a {
		case Read, Create, Delete:
			return t.ownedBy(s)
		}
	case Spectator:
		switch a {
		case Read:
			return true
		case Update:
			return t.ownedBy(s)
		}
	case User:
		return false
	}
	return false
}

func anonymous(a Action, t Target) bool {
	if a != Read {
		return false
	}
	switch t.Resource {
	case Film:
		return t.Published
	case Author, FilmReview, AuthorReview:
		return true
	case Favorite, Spectator, User:
		return false
	}
	return false
}

// CodeNotAuthenticated marks refusals of anonymous callers; handlers answer
// them with 401 instead of 403.
const CodeNotAuthenticated = "NOT_AUTHENTICATED"

// Check is Allowed returning a PermissionDenied error on refusal.
func Check(s Subject, a Action, t Target) error {
	if Allowed(s, a, t) {
		return nil
	}
	if !s.Authenticated() {
		return apperr.PermissionDenied("Authentication credentials were not provided.").WithCode(CodeNotAuthenticated)
	}
	return apperr.PermissionDenied("")
}

// SeesUnpublished reports whether s may read films in any status.
func SeesUnpublished(s Subject) bool {
	return Allowed(s, Read, Target{Resource: Film})
}
