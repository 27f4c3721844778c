package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type CleanupSessionsArgs struct{}

func (CleanupSessionsArgs) Kind() string { return "cleanup_sessions" }

// CleanupWorker removes expired session rows. Scheduled periodically
// from main; expired sessions are already rejected at validation time,
// this only reclaims storage.
type CleanupWorker struct {
	river.WorkerDefaults[CleanupSessionsArgs]
	repo *Repository
	log  *slog.Logger
}

func NewCleanupWorker(repo *Repository, log *slog.Logger) *CleanupWorker {
	return &CleanupWorker{repo: repo, log: log}
}

func (w *CleanupWorker) Work(ctx context.Context, _ *river.Job[CleanupSessionsArgs]) error {
	if err := w.repo.DeleteExpiredSessions(ctx, time.Now()); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	w.log.Info("expired sessions cleaned up")
	return nil
}
