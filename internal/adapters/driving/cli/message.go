package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Manage chat messages",
}

var messageAppendCmd = &cobra.Command{
	Use:   "append [chat-id] [content]",
	Short: "Append a message to a chat",
	Long: `Append a message to a chat you own.

Passing --id makes the append safe to retry: a message whose id is already
stored is skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runMessageAppend,
}

var messageListCmd = &cobra.Command{
	Use:   "list [chat-id]",
	Short: "List a chat's messages in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessageList,
}

var messageTruncateCmd = &cobra.Command{
	Use:   "truncate [message-id]",
	Short: "Delete a message and everything after it",
	Long: `Delete a message, every later message in the same chat, and their votes.

This is the first half of editing a message: truncate, then append the
edited text.`,
	Args: cobra.ExactArgs(1),
	RunE: runMessageTruncate,
}

var (
	appendMessageID   string
	messageRole       string
	messageInProgress bool
	messageAt         int64
)

func init() {
	messageAppendCmd.Flags().StringVar(&appendMessageID, "id", "", "message id (generated when empty)")
	messageAppendCmd.Flags().StringVarP(&messageRole, "role", "r", string(domain.RoleUser), "user or assistant")
	messageAppendCmd.Flags().BoolVar(&messageInProgress, "in-progress", false, "mark the message as still streaming")
	messageAppendCmd.Flags().Int64Var(&messageAt, "at", 0, "creation time in Unix milliseconds (defaults to now)")

	messageCmd.AddCommand(messageAppendCmd)
	messageCmd.AddCommand(messageListCmd)
	messageCmd.AddCommand(messageTruncateCmd)
	rootCmd.AddCommand(messageCmd)
}

func runMessageAppend(cmd *cobra.Command, args []string) error {
	msg := domain.Message{
		ID:        appendMessageID,
		ChatID:    args[0],
		Role:      domain.Role(messageRole),
		Content:   args[1],
		CreatedAt: messageAt,
	}
	if messageInProgress {
		msg.State = domain.MessageStateInProgress
	}

	inserted, err := services.Messages.Append(actorContext(cmd), []domain.Message{msg})
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	if len(inserted) == 0 {
		cmd.Printf("Message %s already stored\n", appendMessageID)
		return nil
	}
	cmd.Printf("Appended message %s\n", inserted[0].ID)
	return nil
}

func runMessageList(cmd *cobra.Command, args []string) error {
	msgs, err := services.Messages.List(actorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}
	if len(msgs) == 0 {
		cmd.Println("No messages.")
		return nil
	}
	for _, m := range msgs {
		marker := ""
		if m.State == domain.MessageStateInProgress {
			marker = " (in progress)"
		}
		cmd.Printf("[%s] %s %s%s: %s\n", formatMillis(m.CreatedAt), m.ID, m.Role, marker, m.Content)
	}
	return nil
}

func runMessageTruncate(cmd *cobra.Command, args []string) error {
	result, err := services.Coordinator.TruncateTrailing(actorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("truncating chat: %w", err)
	}
	cmd.Printf("Deleted %d message(s) and %d vote(s)\n", result.DeletedMessageCount, result.DeletedVoteCount)
	return nil
}
