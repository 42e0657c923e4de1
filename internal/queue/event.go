// Package queue carries activity events over RabbitMQ: a publisher used by
// the services and a consumer that appends them to an activity log.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after successful writes.
const (
	EventReviewCreated   = "review.created"
	EventReviewDeleted   = "review.deleted"
	EventFavoriteAdded   = "favorite.added"
	EventFavoriteRemoved = "favorite.removed"
	EventFilmArchived    = "film.archived"
	EventImportCompleted = "import.completed"
)

// Event is the JSON payload of every message on the activity queue.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ActorID    uint64         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent stamps a new event with a random id and the current time.
func NewEvent(typ string, actorID uint64, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
