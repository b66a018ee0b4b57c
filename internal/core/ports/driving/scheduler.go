package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// Scheduler runs the cleanup sweeps on their configured intervals.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunTask runs one sweep now and records it in the task's history.
	// Unknown task ids return domain.ErrNotFound.
	RunTask(ctx context.Context, taskID string) (*domain.SweepRun, error)

	// History returns up to limit runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.SweepRun, error)
}
