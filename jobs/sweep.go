package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DraftSweeper cancels stale draft purchase requests.
type DraftSweeper interface {
	SweepStaleDrafts(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper runs the nightly draft cleanup.
type Sweeper struct {
	Logger      *slog.Logger
	Procurement DraftSweeper
	Age         time.Duration
}

// HandleDraftSweep processes procure:sweep tasks.
func (s *Sweeper) HandleDraftSweep(ctx context.Context, t *asynq.Task) error {
	swept, err := s.Procurement.SweepStaleDrafts(ctx, s.Age)
	if err != nil {
		s.Logger.Error("draft sweep failed", "error", err)
		return err
	}
	s.Logger.Info("draft sweep done", "cancelled", swept, "older_than", s.Age.String())
	return nil
}
