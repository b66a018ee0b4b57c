package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sched := store.SchedulerStore()

	now := time.Now().Truncate(time.Millisecond)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDOrphanSweep,
		Name:        "Orphan Sweep",
		Interval:    15 * time.Minute,
		LastRun:     now.Add(-10 * time.Minute),
		NextRun:     now.Add(5 * time.Minute),
		LastSuccess: now.Add(-10 * time.Minute),
		Enabled:     true,
	}
	require.NoError(t, sched.SaveTask(ctx, task))

	got, err := sched.GetTask(ctx, domain.TaskIDOrphanSweep)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Orphan Sweep", got.Name)
	assert.Equal(t, 15*time.Minute, got.Interval)
	assert.True(t, got.Enabled)
	assert.True(t, task.LastRun.Equal(got.LastRun))
	assert.True(t, task.NextRun.Equal(got.NextRun))
	assert.Empty(t, got.LastError)
}

func TestSchedulerStore_GetTask_Missing(t *testing.T) {
	store := setupTestStore(t)

	task, err := store.SchedulerStore().GetTask(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Replaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sched := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: domain.TaskIDVoteSweep, Name: "Vote Sweep", Interval: time.Hour, Enabled: true}
	require.NoError(t, sched.SaveTask(ctx, task))

	task.Enabled = false
	task.LastError = "vote store offline"
	require.NoError(t, sched.SaveTask(ctx, task))

	got, err := sched.GetTask(ctx, domain.TaskIDVoteSweep)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "vote store offline", got.LastError)
	assert.True(t, got.LastRun.IsZero())

	tasks, err := sched.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestSchedulerStore_SaveTask_Invalid(t *testing.T) {
	store := setupTestStore(t)
	sched := store.SchedulerStore()

	assert.ErrorIs(t, sched.SaveTask(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, sched.SaveTask(context.Background(), &domain.ScheduledTask{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, sched.RecordRun(context.Background(), nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks_Ordered(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sched := store.SchedulerStore()

	for _, id := range []string{domain.TaskIDVoteSweep, domain.TaskIDOrphanSweep} {
		require.NoError(t, sched.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Minute}))
	}

	tasks, err := sched.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDOrphanSweep, tasks[0].ID)
	assert.Equal(t, domain.TaskIDVoteSweep, tasks[1].ID)
}

func TestSchedulerStore_Runs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sched := store.SchedulerStore()

	start := time.Now().Truncate(time.Millisecond)
	require.NoError(t, sched.RecordRun(ctx, &domain.SweepRun{
		TaskID:    domain.TaskIDOrphanSweep,
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
		Reclaimed: domain.SweepResult{OrphanChats: 1, Tombstones: 2, Messages: 5, Votes: 3, Versions: 1},
	}))
	require.NoError(t, sched.RecordRun(ctx, &domain.SweepRun{
		TaskID:    domain.TaskIDOrphanSweep,
		StartedAt: start.Add(time.Minute),
		EndedAt:   start.Add(time.Minute),
		Error:     "listing chats: database is locked",
	}))

	runs, err := sched.RecentRuns(ctx, domain.TaskIDOrphanSweep, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.False(t, runs[0].Succeeded())
	assert.Equal(t, "listing chats: database is locked", runs[0].Error)

	assert.True(t, runs[1].Succeeded())
	assert.Equal(t, domain.SweepResult{OrphanChats: 1, Tombstones: 2, Messages: 5, Votes: 3, Versions: 1}, runs[1].Reclaimed)
	assert.True(t, start.Equal(runs[1].StartedAt))

	other, err := sched.RecentRuns(ctx, domain.TaskIDVoteSweep, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSchedulerStore_PruneRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sched := store.SchedulerStore()

	for i := 1; i <= 6; i++ {
		for _, id := range []string{domain.TaskIDOrphanSweep, domain.TaskIDVoteSweep} {
			require.NoError(t, sched.RecordRun(ctx, &domain.SweepRun{
				TaskID:    id,
				StartedAt: time.UnixMilli(int64(i) * 1000),
				EndedAt:   time.UnixMilli(int64(i) * 1000),
				Reclaimed: domain.SweepResult{Votes: i},
			}))
		}
	}

	limited, err := sched.RecentRuns(ctx, domain.TaskIDVoteSweep, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, sched.PruneRuns(ctx, 3))

	for _, id := range []string{domain.TaskIDOrphanSweep, domain.TaskIDVoteSweep} {
		runs, err := sched.RecentRuns(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3, id)
		assert.Equal(t, 6, runs[0].Reclaimed.Votes)
		assert.Equal(t, 4, runs[2].Reclaimed.Votes)
	}
}

func TestMillis(t *testing.T) {
	assert.Equal(t, int64(0), millis(time.Time{}))
	assert.True(t, fromMillis(0).IsZero())

	ts := time.UnixMilli(1_700_000_000_123)
	assert.Equal(t, int64(1_700_000_000_123), millis(ts))
	assert.True(t, ts.Equal(fromMillis(1_700_000_000_123)))
}
