package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

var sweepHistory int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim records left by interrupted deletes",
	Long: `Run the orphan and vote sweeps once.

The orphan sweep finishes chat deletions that stopped part way and removes
expired tombstones. The vote sweep removes votes whose message is gone.
'chatstate serve' runs both on a schedule. Each run is recorded; use
--history to list recent runs instead of sweeping.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepHistory, "history", 0, "list the last N recorded runs of each sweep")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	if sweepHistory > 0 {
		return printSweepHistory(cmd, sweepHistory)
	}

	orphans, err := sweepOnce(cmd, domain.TaskIDOrphanSweep)
	if err != nil {
		return fmt.Errorf("orphan sweep: %w", err)
	}
	votes, err := sweepOnce(cmd, domain.TaskIDVoteSweep)
	if err != nil {
		return fmt.Errorf("vote sweep: %w", err)
	}

	cmd.Printf("Orphaned chats:  %d\n", orphans.OrphanChats)
	cmd.Printf("Tombstones:      %d\n", orphans.Tombstones)
	cmd.Printf("Messages:        %d\n", orphans.Messages)
	cmd.Printf("Votes:           %d\n", orphans.Votes+votes.Votes)
	cmd.Printf("Versions:        %d\n", orphans.Versions)
	return nil
}

// sweepOnce runs a sweep through the scheduler so the run lands in its
// history. Without a scheduler it calls the sweeper directly.
func sweepOnce(cmd *cobra.Command, taskID string) (domain.SweepResult, error) {
	ctx := cmd.Context()
	if services.Scheduler == nil {
		if taskID == domain.TaskIDVoteSweep {
			return services.Sweeper.SweepVotes(ctx)
		}
		return services.Sweeper.SweepOrphans(ctx)
	}

	run, err := services.Scheduler.RunTask(ctx, taskID)
	if err != nil {
		return domain.SweepResult{}, err
	}
	if !run.Succeeded() {
		return run.Reclaimed, errors.New(run.Error)
	}
	return run.Reclaimed, nil
}

func printSweepHistory(cmd *cobra.Command, limit int) error {
	if services.Scheduler == nil {
		return fmt.Errorf("sweep history: %w", domain.ErrNotImplemented)
	}
	for _, taskID := range []string{domain.TaskIDOrphanSweep, domain.TaskIDVoteSweep} {
		runs, err := services.Scheduler.History(cmd.Context(), taskID, limit)
		if err != nil {
			return fmt.Errorf("history of %s: %w", taskID, err)
		}
		cmd.Printf("%s:\n", taskID)
		if len(runs) == 0 {
			cmd.Println("  no runs recorded")
			continue
		}
		for _, run := range runs {
			status := "ok"
			if !run.Succeeded() {
				status = "failed: " + run.Error
			}
			cmd.Printf("  %s  %6s  reclaimed %d  %s\n",
				run.StartedAt.Format(time.RFC3339),
				run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond),
				run.Reclaimed.Total(),
				status)
		}
	}
	return nil
}
