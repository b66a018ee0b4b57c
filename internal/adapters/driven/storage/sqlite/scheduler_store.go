package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore over the sweep_tasks and
// sweep_runs tables. Times are stored as Unix milliseconds, zero for unset.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const sweepTaskColumns = `id, name, interval_ms, enabled, last_run, next_run, last_success, last_error`

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+sweepTaskColumns+` FROM sweep_tasks WHERE id = ?`, taskID)

	task, err := scanSweepTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sweep task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+sweepTaskColumns+` FROM sweep_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing sweep tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanSweepTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sweep task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sweep_tasks (`+sweepTaskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Name, task.Interval.Milliseconds(), task.Enabled,
		millis(task.LastRun), millis(task.NextRun), millis(task.LastSuccess), task.LastError)
	if err != nil {
		return fmt.Errorf("saving sweep task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordRun(ctx context.Context, run *domain.SweepRun) error {
	if run == nil || run.TaskID == "" {
		return domain.ErrInvalidInput
	}

	r := run.Reclaimed
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sweep_runs
			(task_id, started_at, ended_at, error, orphan_chats, tombstones, messages, votes, versions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.TaskID, millis(run.StartedAt), millis(run.EndedAt), run.Error,
		r.OrphanChats, r.Tombstones, r.Messages, r.Votes, r.Versions)
	if err != nil {
		return fmt.Errorf("recording %s run: %w", run.TaskID, err)
	}
	return nil
}

func (s *schedulerStore) RecentRuns(ctx context.Context, taskID string, limit int) ([]domain.SweepRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, error, orphan_chats, tombstones, messages, votes, versions
		FROM sweep_runs WHERE task_id = ?
		ORDER BY seq DESC
		LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing %s runs: %w", taskID, err)
	}
	defer rows.Close()

	var runs []domain.SweepRun
	for rows.Next() {
		var (
			run          domain.SweepRun
			started, end int64
		)
		r := &run.Reclaimed
		if err := rows.Scan(&run.TaskID, &started, &end, &run.Error,
			&r.OrphanChats, &r.Tombstones, &r.Messages, &r.Votes, &r.Versions); err != nil {
			return nil, fmt.Errorf("scanning sweep run: %w", err)
		}
		run.StartedAt = fromMillis(started)
		run.EndedAt = fromMillis(end)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *schedulerStore) PruneRuns(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM sweep_runs
		WHERE seq NOT IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY seq DESC) AS rn
				FROM sweep_runs
			) WHERE rn <= ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning sweep runs: %w", err)
	}
	return nil
}

func scanSweepTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		intervalMs                    int64
		lastRun, nextRun, lastSuccess int64
	)
	if err := row.Scan(&task.ID, &task.Name, &intervalMs, &task.Enabled,
		&lastRun, &nextRun, &lastSuccess, &task.LastError); err != nil {
		return nil, err
	}
	task.Interval = time.Duration(intervalMs) * time.Millisecond
	task.LastRun = fromMillis(lastRun)
	task.NextRun = fromMillis(nextRun)
	task.LastSuccess = fromMillis(lastSuccess)
	return &task, nil
}

// millis stores the zero time as 0.
func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
