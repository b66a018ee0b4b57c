package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
// State is lost on restart, so every sweep runs once at startup.
type SchedulerStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ScheduledTask
	runs  map[string][]domain.SweepRun
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
		runs:  make(map[string][]domain.SweepRun),
	}
}

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *SchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// ListTasks returns all scheduled tasks ordered by ID.
func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// SaveTask persists a task's state.
func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// RecordRun appends a run to the task's history.
func (s *SchedulerStore) RecordRun(_ context.Context, run *domain.SweepRun) error {
	if run == nil || run.TaskID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.TaskID] = append(s.runs[run.TaskID], *run)
	return nil
}

// RecentRuns returns up to limit runs of a task, newest first.
func (s *SchedulerStore) RecentRuns(_ context.Context, taskID string, limit int) ([]domain.SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.runs[taskID]
	n := len(history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.SweepRun, 0, n)
	for i := len(history) - 1; len(out) < n; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

// PruneRuns keeps the newest keep runs of each task.
func (s *SchedulerStore) PruneRuns(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for taskID, history := range s.runs {
		if len(history) > keep {
			s.runs[taskID] = slices.Clone(history[len(history)-keep:])
		}
	}
	return nil
}
