package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ampere-erp/ampere-erp/internal/procurement"
)

const unreadCacheTTL = 5 * time.Minute

// RepositoryPort abstracts notification storage.
type RepositoryPort interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// DirectoryPort resolves role-addressed events to concrete user IDs.
type DirectoryPort interface {
	UserIDsByRole(ctx context.Context, role string) ([]int64, error)
}

// Service fans out workflow events to notification rows and serves the
// notification API. Unread counts are cached in Redis and invalidated on
// every write touching a user.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	directory DirectoryPort
	cache     *redis.Client
}

// NewService constructs the notification service. cache may be nil; counts
// then always hit the database.
func NewService(logger *slog.Logger, repo RepositoryPort, directory DirectoryPort, cache *redis.Client) *Service {
	return &Service{logger: logger, repo: repo, directory: directory, cache: cache}
}

// Publish implements procurement.Notifier. Role-addressed events fan out to
// every user holding the role, concurrently. The actor never notifies
// themselves.
func (s *Service) Publish(ctx context.Context, evt procurement.WorkflowEvent) error {
	targets, err := s.resolveTargets(ctx, evt)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, userID := range targets {
		userID := userID
		g.Go(func() error {
			_, err := s.repo.Insert(ctx, Notification{
				UserID:   userID,
				Kind:     evt.Kind,
				Title:    evt.Title,
				Body:     evt.Body,
				Entity:   evt.Entity,
				EntityID: evt.EntityID,
			})
			if err != nil {
				return err
			}
			s.invalidateUnread(ctx, userID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("notification fan-out failed", "kind", evt.Kind, "error", err)
		return err
	}
	return nil
}

func (s *Service) resolveTargets(ctx context.Context, evt procurement.WorkflowEvent) ([]int64, error) {
	if evt.TargetUserID != 0 {
		if evt.TargetUserID == evt.ActorID {
			return nil, nil
		}
		return []int64{evt.TargetUserID}, nil
	}
	if strings.TrimSpace(evt.TargetRole) == "" {
		return nil, fmt.Errorf("%w: event needs a target role or user", ErrValidation)
	}
	ids, err := s.directory.UserIDsByRole(ctx, evt.TargetRole)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != evt.ActorID {
			out = append(out, id)
		}
	}
	return out, nil
}

// List returns a user's notifications.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead marks one owned notification read.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// UnreadCount returns the unread badge count, served from Redis when warm.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	key := unreadKey(userID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Int64(); err == nil {
			return cached, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, unreadCacheTTL).Err(); err != nil {
			s.logger.Warn("unread cache set failed", "error", err)
		}
	}
	return count, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadKey(userID)).Err(); err != nil {
		s.logger.Warn("unread cache invalidation failed", "user_id", userID, "error", err)
	}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("notify:unread:%d", userID)
}
