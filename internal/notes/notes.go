// Package notes implements per-user sticky notes: small colored memos the
// dashboard renders in a user-defined order.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Note is one sticky note owned by a single user.
type Note struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates a missing note or one owned by another user.
	ErrNotFound = errors.New("notes: note not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("notes: invalid input")
)

const defaultColor = "yellow"

// RepositoryPort abstracts note storage.
type RepositoryPort interface {
	ListByUser(ctx context.Context, userID int64) ([]Note, error)
	Insert(ctx context.Context, n Note) (Note, error)
	Update(ctx context.Context, n Note) error
	Delete(ctx context.Context, id, userID int64) error
	Get(ctx context.Context, id, userID int64) (Note, error)
}

// Service guards ownership and input rules around the repository.
type Service struct {
	repo RepositoryPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the user's notes in position order.
func (s *Service) List(ctx context.Context, userID int64) ([]Note, error) {
	return s.repo.ListByUser(ctx, userID)
}

// CreateInput carries new note data.
type CreateInput struct {
	Content  string
	Color    string
	Position int
}

// Create stores a new note for the user.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (Note, error) {
	if strings.TrimSpace(input.Content) == "" {
		return Note{}, ErrValidation
	}
	if input.Color == "" {
		input.Color = defaultColor
	}
	return s.repo.Insert(ctx, Note{
		UserID:   userID,
		Content:  input.Content,
		Color:    input.Color,
		Position: input.Position,
	})
}

// UpdateInput carries note changes. Zero values leave a field unchanged,
// except Position which is always applied.
type UpdateInput struct {
	Content  string
	Color    string
	Position int
}

// Update edits an owned note.
func (s *Service) Update(ctx context.Context, id, userID int64, input UpdateInput) (Note, error) {
	note, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return Note{}, err
	}
	if strings.TrimSpace(input.Content) != "" {
		note.Content = input.Content
	}
	if input.Color != "" {
		note.Color = input.Color
	}
	note.Position = input.Position
	if err := s.repo.Update(ctx, note); err != nil {
		return Note{}, err
	}
	return note, nil
}

// Delete removes an owned note.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}
