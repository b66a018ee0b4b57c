package driven

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// SchedulerStore persists sweep schedules and run history so sweeps resume
// on schedule after a restart.
type SchedulerStore interface {
	// GetTask retrieves a sweep task by ID.
	// Returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns all sweep tasks ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordRun appends a run to the task's history.
	RecordRun(ctx context.Context, run *domain.SweepRun) error

	// RecentRuns returns up to limit runs of a task, newest first.
	// A non-positive limit returns every run.
	RecentRuns(ctx context.Context, taskID string, limit int) ([]domain.SweepRun, error)

	// PruneRuns keeps only the newest keep runs of each task.
	PruneRuns(ctx context.Context, keep int) error
}
