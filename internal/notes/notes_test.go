package notes

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryNotesRepo struct {
	rows   map[int64]Note
	nextID int64
}

func newMemoryNotesRepo() *memoryNotesRepo {
	return &memoryNotesRepo{rows: make(map[int64]Note)}
}

func (r *memoryNotesRepo) ListByUser(ctx context.Context, userID int64) ([]Note, error) {
	var out []Note
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memoryNotesRepo) Insert(ctx context.Context, n Note) (Note, error) {
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.rows[n.ID] = n
	return n, nil
}

func (r *memoryNotesRepo) Get(ctx context.Context, id, userID int64) (Note, error) {
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func (r *memoryNotesRepo) Update(ctx context.Context, n Note) error {
	stored, ok := r.rows[n.ID]
	if !ok || stored.UserID != n.UserID {
		return ErrNotFound
	}
	r.rows[n.ID] = n
	return nil
}

func (r *memoryNotesRepo) Delete(ctx context.Context, id, userID int64) error {
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func TestCreateNote(t *testing.T) {
	svc := NewService(newMemoryNotesRepo())

	note, err := svc.Create(context.Background(), 1, CreateInput{Content: "call vendor about MCB pricing"})
	require.NoError(t, err)
	require.Equal(t, defaultColor, note.Color)
	require.Equal(t, int64(1), note.UserID)

	_, err = svc.Create(context.Background(), 1, CreateInput{Content: "   "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestNotesAreOwnerScoped(t *testing.T) {
	repo := newMemoryNotesRepo()
	svc := NewService(repo)

	mine, err := svc.Create(context.Background(), 1, CreateInput{Content: "mine"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, CreateInput{Content: "theirs"})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "mine", list[0].Content)

	// Another user can neither edit nor delete my note.
	_, err = svc.Update(context.Background(), mine.ID, 2, UpdateInput{Content: "hijacked"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), mine.ID, 2), ErrNotFound)
}

func TestUpdateNote(t *testing.T) {
	svc := NewService(newMemoryNotesRepo())
	note, err := svc.Create(context.Background(), 1, CreateInput{Content: "draft", Color: "pink", Position: 2})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), note.ID, 1, UpdateInput{Content: "final", Position: 0})
	require.NoError(t, err)
	require.Equal(t, "final", updated.Content)
	require.Equal(t, "pink", updated.Color)
	require.Equal(t, 0, updated.Position)
}

func TestListOrderedByPosition(t *testing.T) {
	svc := NewService(newMemoryNotesRepo())
	_, err := svc.Create(context.Background(), 1, CreateInput{Content: "second", Position: 1})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, CreateInput{Content: "first", Position: 0})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, []string{list[0].Content, list[1].Content})
}
