package notify

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/shared"
)

type memoryNotifyRepo struct {
	mu     sync.Mutex
	rows   map[int64]Notification
	nextID int64
}

func newMemoryNotifyRepo() *memoryNotifyRepo {
	return &memoryNotifyRepo{rows: make(map[int64]Notification)}
}

func (r *memoryNotifyRepo) Insert(ctx context.Context, n Notification) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.rows[n.ID] = n
	return n, nil
}

func (r *memoryNotifyRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.rows {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *memoryNotifyRepo) MarkRead(ctx context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	r.rows[id] = n
	return nil
}

func (r *memoryNotifyRepo) MarkAllRead(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.rows {
		if n.UserID == userID {
			n.Read = true
			r.rows[id] = n
		}
	}
	return nil
}

func (r *memoryNotifyRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

type staticDirectory struct {
	byRole map[string][]int64
}

func (d staticDirectory) UserIDsByRole(ctx context.Context, role string) ([]int64, error) {
	return d.byRole[role], nil
}

func newTestNotify(t *testing.T) (*Service, *memoryNotifyRepo, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemoryNotifyRepo()
	directory := staticDirectory{byRole: map[string][]int64{
		shared.RoleManager: {3, 4},
	}}
	svc := NewService(slog.Default(), repo, directory, client)
	return svc, repo, client
}

func TestPublishFansOutToRole(t *testing.T) {
	svc, repo, _ := newTestNotify(t)

	err := svc.Publish(context.Background(), procurement.WorkflowEvent{
		Kind:       procurement.EventCCSubmitted,
		Title:      "Cost comparison awaiting review",
		TargetRole: shared.RoleManager,
		ActorID:    2,
	})
	require.NoError(t, err)

	for _, userID := range []int64{3, 4} {
		list, err := repo.ListByUser(context.Background(), userID, true, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, procurement.EventCCSubmitted, list[0].Kind)
	}
}

func TestPublishSkipsActor(t *testing.T) {
	svc, repo, _ := newTestNotify(t)

	err := svc.Publish(context.Background(), procurement.WorkflowEvent{
		Kind:       procurement.EventCCSubmitted,
		TargetRole: shared.RoleManager,
		ActorID:    3,
	})
	require.NoError(t, err)

	list, err := repo.ListByUser(context.Background(), 3, false, 0)
	require.NoError(t, err)
	require.Empty(t, list)
	list, err = repo.ListByUser(context.Background(), 4, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPublishToSingleUser(t *testing.T) {
	svc, repo, _ := newTestNotify(t)

	err := svc.Publish(context.Background(), procurement.WorkflowEvent{
		Kind:         procurement.EventCCRejected,
		TargetUserID: 2,
		ActorID:      3,
	})
	require.NoError(t, err)
	list, err := repo.ListByUser(context.Background(), 2, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPublishRequiresTarget(t *testing.T) {
	svc, _, _ := newTestNotify(t)
	err := svc.Publish(context.Background(), procurement.WorkflowEvent{Kind: "x"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUnreadCountCachedAndInvalidated(t *testing.T) {
	svc, _, _ := newTestNotify(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, procurement.WorkflowEvent{Kind: "x", TargetUserID: 7, ActorID: 1}))
	count, err := svc.UnreadCount(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// Second publish invalidates the cached count.
	require.NoError(t, svc.Publish(ctx, procurement.WorkflowEvent{Kind: "y", TargetUserID: 7, ActorID: 1}))
	count, err = svc.UnreadCount(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestMarkReadRefreshesCount(t *testing.T) {
	svc, repo, _ := newTestNotify(t)
	ctx := context.Background()

	require.NoError(t, svc.Publish(ctx, procurement.WorkflowEvent{Kind: "x", TargetUserID: 7, ActorID: 1}))
	list, err := repo.ListByUser(ctx, 7, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID, 7))
	count, err := svc.UnreadCount(ctx, 7)
	require.NoError(t, err)
	require.Zero(t, count)

	// Foreign notifications cannot be marked.
	require.ErrorIs(t, svc.MarkRead(ctx, list[0].ID, 8), ErrNotFound)
}
