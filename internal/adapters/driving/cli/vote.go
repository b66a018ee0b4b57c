package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote on assistant messages",
}

var voteCastCmd = &cobra.Command{
	Use:       "cast [chat-id] [message-id] [up|down]",
	Short:     "Set the vote on a message",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{string(domain.VoteUp), string(domain.VoteDown)},
	RunE:      runVoteCast,
}

var voteListCmd = &cobra.Command{
	Use:   "list [chat-id]",
	Short: "List the votes of a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoteList,
}

func init() {
	voteCmd.AddCommand(voteCastCmd)
	voteCmd.AddCommand(voteListCmd)
	rootCmd.AddCommand(voteCmd)
}

func runVoteCast(cmd *cobra.Command, args []string) error {
	v, err := services.Votes.Vote(actorContext(cmd), args[0], args[1], domain.VoteType(args[2]))
	if err != nil {
		return fmt.Errorf("voting: %w", err)
	}
	cmd.Printf("Voted %s on %s\n", voteDirection(v.IsUpvoted), v.MessageID)
	return nil
}

func runVoteList(cmd *cobra.Command, args []string) error {
	votes, err := services.Votes.List(actorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("listing votes: %w", err)
	}
	if len(votes) == 0 {
		cmd.Println("No votes.")
		return nil
	}
	for _, v := range votes {
		cmd.Printf("%s  %s\n", v.MessageID, voteDirection(v.IsUpvoted))
	}
	return nil
}

func voteDirection(up bool) domain.VoteType {
	if up {
		return domain.VoteUp
	}
	return domain.VoteDown
}
