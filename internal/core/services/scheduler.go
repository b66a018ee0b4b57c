package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of runs kept per task.
const historyRetention = 100

// Scheduler runs the cleanup sweeps on their configured intervals.
// Task state lives in a SchedulerStore so intervals survive restarts.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	sweeper driving.Sweeper
	// tick is how often due tasks are checked.
	tick time.Duration

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	sweeper driving.Sweeper,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		sweeper:  sweeper,
		tick:     1 * time.Minute,
		inFlight: make(map[string]bool),
	}
}

// SetTickInterval changes how often due tasks are checked.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	if d > 0 {
		s.tick = d
	}
}

// RunTask runs one task immediately and waits for it, recording the run
// like a scheduled one. Unknown task ids return domain.ErrNotFound.
func (s *Scheduler) RunTask(ctx context.Context, taskID string) (*domain.SweepRun, error) {
	if s.store == nil || s.sweeper == nil {
		return nil, domain.ErrNotImplemented
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		cfg := s.config.GetTaskConfig(taskID)
		if cfg.Interval == 0 {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		}
		task = &domain.ScheduledTask{ID: taskID, Name: taskName(taskID), Interval: cfg.Interval, Enabled: cfg.Enabled}
	}
	return s.execute(ctx, task), nil
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	if !s.config.Enabled || s.store == nil || s.sweeper == nil {
		s.mu.Unlock()
		logger.Debug("scheduler: disabled")
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: %v", err)
	}
	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// sweepTasks lists the built-in tasks in the order they are seeded.
var sweepTasks = []struct {
	id   string
	name string
}{
	{domain.TaskIDOrphanSweep, "Orphan Sweep"},
	{domain.TaskIDVoteSweep, "Vote Sweep"},
}

// initialiseTasks seeds or refreshes each sweep task from the config.
// Tasks configured with no interval are left untouched.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, t := range sweepTasks {
		cfg := s.config.GetTaskConfig(t.id)
		if cfg.Interval <= 0 {
			continue
		}
		if err := s.ensureTask(ctx, t.id, t.name, cfg); err != nil {
			return fmt.Errorf("seeding %s: %w", t.id, err)
		}
	}
	return nil
}

func taskName(id string) string {
	for _, t := range sweepTasks {
		if t.id == id {
			return t.name
		}
	}
	return id
}

// ensureTask saves the task with the configured interval and enabled flag.
// A changed interval restarts the countdown from now; an unchanged one
// keeps the stored NextRun so restarts do not postpone a due sweep.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	switch {
	case task == nil:
		task = &domain.ScheduledTask{ID: id, Name: name, Interval: cfg.Interval, NextRun: now.Add(cfg.Interval)}
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = now.Add(cfg.Interval)
	}
	task.Enabled = cfg.Enabled
	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if task := &tasks[i]; task.Enabled && !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background.
// A task still running from an earlier tick is skipped.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()
		s.execute(ctx, task)
	}()
}

// execute runs a task, then persists its state and the run.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.SweepRun {
	run := &domain.SweepRun{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDOrphanSweep:
		run.Reclaimed, err = s.sweeper.SweepOrphans(ctx)
	case domain.TaskIDVoteSweep:
		run.Reclaimed, err = s.sweeper.SweepVotes(ctx)
	default:
		err = fmt.Errorf("unknown task ID: %s", task.ID)
	}

	run.EndedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
		task.LastError = run.Error
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		task.LastError = ""
		task.LastSuccess = run.EndedAt
		logger.Debug("scheduler: %s reclaimed %d records", task.ID, run.Reclaimed.Total())
	}

	task.LastRun = run.StartedAt
	task.NextRun = run.EndedAt.Add(task.Interval)

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordRun(ctx, run); recordErr != nil {
		logger.Warn("scheduler: failed to record run of %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneRuns(ctx, historyRetention); pruneErr != nil {
		logger.Warn("scheduler: failed to prune runs: %v", pruneErr)
	}
	return run
}

// History returns the most recent runs of a task, newest first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.SweepRun, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.store.RecentRuns(ctx, taskID, limit)
}
