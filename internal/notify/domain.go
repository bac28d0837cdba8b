package notify

import (
	"errors"
	"time"
)

// Notification is one message row targeted at a single user.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Entity    string    `json:"entity,omitempty"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrNotFound indicates a missing notification or one owned by another user.
	ErrNotFound = errors.New("notify: notification not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("notify: invalid input")
)
