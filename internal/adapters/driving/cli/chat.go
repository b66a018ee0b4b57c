package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chats",
	Long:  `Create, inspect, share, export and delete chats.`,
}

var chatCreateCmd = &cobra.Command{
	Use:   "create [chat-id]",
	Short: "Create a chat owned by --user",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatCreate,
}

var chatGetCmd = &cobra.Command{
	Use:   "get [chat-id]",
	Short: "Show a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatGet,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chats, newest first",
	Args:  cobra.NoArgs,
	RunE:  runChatList,
}

var chatVisibilityCmd = &cobra.Command{
	Use:       "visibility [chat-id] [public|private]",
	Short:     "Make a chat public or private",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(domain.VisibilityPublic), string(domain.VisibilityPrivate)},
	RunE:      runChatVisibility,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete a chat with its messages, votes and documents",
	Long: `Delete a chat together with every message, vote and chat-scoped document.

The chat is hidden immediately. If the command fails part way, run it again:
deletion resumes where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatDelete,
}

var chatExportCmd = &cobra.Command{
	Use:   "export [chat-id]",
	Short: "Export a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatExport,
}

var (
	chatTitle     string
	chatPublic    bool
	chatOwner     string
	chatDeleteYes bool
	chatExportFmt string
)

func init() {
	chatCreateCmd.Flags().StringVarP(&chatTitle, "title", "t", "", "chat title")
	chatCreateCmd.Flags().BoolVar(&chatPublic, "public", false, "make the chat readable by anyone")
	chatListCmd.Flags().StringVar(&chatOwner, "owner", "", "owner to list (defaults to --user)")
	chatDeleteCmd.Flags().BoolVarP(&chatDeleteYes, "yes", "y", false, "skip confirmation")
	chatExportCmd.Flags().StringVarP(&chatExportFmt, "format", "f", "yaml", "output format: yaml or json")

	chatCmd.AddCommand(chatCreateCmd)
	chatCmd.AddCommand(chatGetCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatVisibilityCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatExportCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatCreate(cmd *cobra.Command, args []string) error {
	visibility := domain.VisibilityPrivate
	if chatPublic {
		visibility = domain.VisibilityPublic
	}
	chat, err := services.Chats.Create(actorContext(cmd), args[0], userFlag, chatTitle, visibility)
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}
	cmd.Printf("Created %s chat %s\n", chat.Visibility, chat.ID)
	return nil
}

func runChatGet(cmd *cobra.Command, args []string) error {
	chat, err := services.Chats.Get(actorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("getting chat: %w", err)
	}
	printChat(cmd, chat)
	return nil
}

func printChat(cmd *cobra.Command, chat *domain.Chat) {
	cmd.Printf("ID:         %s\n", chat.ID)
	cmd.Printf("Title:      %s\n", chat.Title)
	cmd.Printf("Owner:      %s\n", chat.OwnerID)
	cmd.Printf("Visibility: %s\n", chat.Visibility)
	cmd.Printf("Created:    %s\n", formatMillis(chat.CreatedAt))
}

func runChatList(cmd *cobra.Command, _ []string) error {
	chats, err := services.Chats.List(actorContext(cmd), chatOwner)
	if err != nil {
		return fmt.Errorf("listing chats: %w", err)
	}
	if len(chats) == 0 {
		cmd.Println("No chats.")
		return nil
	}
	for _, c := range chats {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("%-36s  %-7s  %s  %s\n", c.ID, c.Visibility, formatMillis(c.CreatedAt), title)
	}
	return nil
}

func runChatVisibility(cmd *cobra.Command, args []string) error {
	chat, err := services.Chats.SetVisibility(actorContext(cmd), args[0], domain.Visibility(args[1]))
	if err != nil {
		return fmt.Errorf("setting visibility: %w", err)
	}
	cmd.Printf("Chat %s is now %s\n", chat.ID, chat.Visibility)
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	chatID := args[0]
	if !chatDeleteYes && term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Printf("Delete chat %s and everything in it? [y/N]: ", chatID)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			cmd.Println("Cancelled.")
			return nil
		}
	}
	if err := services.Coordinator.DeleteChat(actorContext(cmd), chatID); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	cmd.Printf("Deleted chat %s\n", chatID)
	return nil
}

// transcript is the exported form of a chat.
type transcript struct {
	Chat     domain.Chat      `json:"chat" yaml:"chat"`
	Messages []domain.Message `json:"messages" yaml:"messages"`
	Votes    []domain.Vote    `json:"votes" yaml:"votes"`
}

func runChatExport(cmd *cobra.Command, args []string) error {
	ctx := actorContext(cmd)
	chat, err := services.Chats.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("getting chat: %w", err)
	}
	msgs, err := services.Messages.List(ctx, chat.ID)
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}
	votes, err := services.Votes.List(ctx, chat.ID)
	if err != nil {
		return fmt.Errorf("listing votes: %w", err)
	}
	t := transcript{Chat: *chat, Messages: msgs, Votes: votes}

	out := cmd.OutOrStdout()
	switch chatExportFmt {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encoding transcript: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return errors.New("format must be yaml or json")
	}
}
