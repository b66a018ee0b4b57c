package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// SweepRun records one execution of a sweep task.
type SweepRun struct {
	// TaskID identifies which sweep ran.
	TaskID string

	StartedAt time.Time
	EndedAt   time.Time

	// Error is empty when the sweep completed.
	Error string

	// Reclaimed breaks down what the sweep removed.
	Reclaimed SweepResult
}

// Succeeded reports whether the sweep completed without error.
func (r *SweepRun) Succeeded() bool {
	return r.Error == ""
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig

	// TombstoneRetention is how long a deleted chat stays retryable before
	// the orphan sweep purges its tombstone.
	TombstoneRetention time.Duration
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:            true,
		TombstoneRetention: 24 * time.Hour,
		TaskConfigs: map[string]TaskConfig{
			TaskIDOrphanSweep: {
				Enabled:  true,
				Interval: 15 * time.Minute,
			},
			TaskIDVoteSweep: {
				Enabled:  true,
				Interval: 1 * time.Hour,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	// TaskIDOrphanSweep purges messages, votes and scoped versions whose chat is gone.
	TaskIDOrphanSweep = "orphan-sweep"

	// TaskIDVoteSweep removes votes whose message is gone from a live chat.
	TaskIDVoteSweep = "vote-sweep"
)

// SweepResult reports what a cleanup pass reclaimed.
type SweepResult struct {
	// OrphanChats is the number of missing chats whose leftovers were purged.
	OrphanChats int `json:"orphan_chats"`

	// Tombstones is the number of expired chat tombstones removed.
	Tombstones int `json:"tombstones"`

	// Messages is the number of messages deleted.
	Messages int `json:"messages"`

	// Votes is the number of votes deleted.
	Votes int `json:"votes"`

	// Versions is the number of document versions deleted.
	Versions int `json:"versions"`
}

// Total returns the number of records reclaimed.
func (r SweepResult) Total() int {
	return r.Messages + r.Votes + r.Versions
}
