package models

import "time"

// Todo represents a todo item owned by a single user.
type Todo struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TodoPatch carries the fields of a partial update. Nil means unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil
}

// TodoFilter is the store-level filter applied on top of the owner scope.
type TodoFilter struct {
	Status      *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches reports whether t passes the filter. Owner scoping is the caller's job.
func (f TodoFilter) Matches(t Todo) bool {
	if f.Status != nil && t.IsCompleted != *f.Status {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// Event actions published after a successful write.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TodoEvent is the message payload for Kafka.
type TodoEvent struct {
	Action     string    `json:"action"`
	TodoID     string    `json:"todo_id"`
	OwnerID    string    `json:"owner_id"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}
