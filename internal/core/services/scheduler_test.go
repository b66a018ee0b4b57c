package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatstate/internal/core/domain"
)

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	scheduler := NewScheduler(config, memory.NewSchedulerStore(), &mockSweeper{})

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
	assert.Equal(t, time.Minute, scheduler.tick)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), &mockSweeper{})

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	cancel()
	require.NoError(t, scheduler.Stop())
	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), &mockSweeper{})
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_Start_Disabled(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	config.Enabled = false
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(config, store, &mockSweeper{})

	// Returns immediately without creating tasks.
	require.NoError(t, scheduler.Start(context.Background()))
	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)

	nilSweeper := NewScheduler(domain.DefaultSchedulerConfig(), store, nil)
	require.NoError(t, nilSweeper.Start(context.Background()))
}

func TestScheduler_DoubleStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), &mockSweeper{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start returns immediately.
	assert.NoError(t, scheduler.Start(context.Background()))

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSweeper{})
	ctx := context.Background()

	require.NoError(t, scheduler.initialiseTasks(ctx))

	orphan, err := store.GetTask(ctx, domain.TaskIDOrphanSweep)
	require.NoError(t, err)
	require.NotNil(t, orphan)
	assert.Equal(t, "Orphan Sweep", orphan.Name)
	assert.Equal(t, 15*time.Minute, orphan.Interval)
	assert.True(t, orphan.Enabled)

	votes, err := store.GetTask(ctx, domain.TaskIDVoteSweep)
	require.NoError(t, err)
	require.NotNil(t, votes)
	assert.Equal(t, "Vote Sweep", votes.Name)
	assert.Equal(t, time.Hour, votes.Interval)
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSweeper{})
	ctx := context.Background()

	taskCfg := domain.TaskConfig{Enabled: true, Interval: time.Hour}
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	taskCfg.Interval = 2 * time.Hour
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_RunTask_RecordsResult(t *testing.T) {
	store := memory.NewSchedulerStore()
	sweeper := &mockSweeper{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, sweeper)
	ctx := context.Background()

	result, err := scheduler.RunTask(ctx, domain.TaskIDOrphanSweep)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 3, result.Reclaimed.Total())

	result, err = scheduler.RunTask(ctx, domain.TaskIDVoteSweep)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Reclaimed.Total())

	orphans, votes := sweeper.calls()
	assert.Equal(t, 1, orphans)
	assert.Equal(t, 1, votes)

	history, err := scheduler.History(ctx, domain.TaskIDOrphanSweep, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Succeeded())
	assert.Equal(t, domain.SweepResult{Messages: 2, Votes: 1}, history[0].Reclaimed)

	task, err := store.GetTask(ctx, domain.TaskIDOrphanSweep)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.LastSuccess.IsZero())
	assert.True(t, task.NextRun.After(task.LastRun))
}

func TestScheduler_RunTask_Failure(t *testing.T) {
	store := memory.NewSchedulerStore()
	sweeper := &mockSweeper{err: errors.New("store offline")}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, sweeper)
	ctx := context.Background()

	result, err := scheduler.RunTask(ctx, domain.TaskIDVoteSweep)
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "store offline", result.Error)

	task, err := store.GetTask(ctx, domain.TaskIDVoteSweep)
	require.NoError(t, err)
	assert.Equal(t, "store offline", task.LastError)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), &mockSweeper{})

	_, err := scheduler.RunTask(context.Background(), "unknown-task")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_CheckAndRunDueTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	sweeper := &mockSweeper{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, sweeper)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDOrphanSweep,
		Name:     "Orphan Sweep",
		Interval: time.Hour,
		NextRun:  now.Add(-time.Minute),
		Enabled:  true,
	}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:       domain.TaskIDVoteSweep,
		Name:     "Vote Sweep",
		Interval: time.Hour,
		NextRun:  now.Add(time.Hour),
		Enabled:  true,
	}))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	orphans, votes := sweeper.calls()
	assert.Equal(t, 1, orphans)
	assert.Equal(t, 0, votes)
}

func TestScheduler_RunTask_UnknownTaskRecordsFailure(t *testing.T) {
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockSweeper{})
	ctx := context.Background()

	task := &domain.ScheduledTask{ID: "unknown-task", Name: "Unknown", Enabled: true}
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()

	history, err := store.RecentRuns(ctx, "unknown-task", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Succeeded())
}

func TestScheduler_WithRealSweeper(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.messages.AppendMessages(ctx, []domain.Message{msg("o1", "ghost", 1)})
	require.NoError(t, err)

	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), memory.NewSchedulerStore(), env.sweeper)
	result, err := scheduler.RunTask(ctx, domain.TaskIDOrphanSweep)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 1, result.Reclaimed.Total())
}

func TestScheduler_WithoutStore(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), nil, &mockSweeper{})

	_, err := scheduler.RunTask(context.Background(), domain.TaskIDOrphanSweep)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	_, err = scheduler.History(context.Background(), domain.TaskIDOrphanSweep, 1)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
