package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage versioned documents",
	Long:  `Save, list and restore versions of documents produced in chats.`,
}

var documentSaveCmd = &cobra.Command{
	Use:   "save [document-id]",
	Short: "Save a new version of a document",
	Long: `Save a new version of a document.

The first save makes --user the document's owner and, with --chat, scopes the
document to that chat so deleting the chat deletes the document.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentSave,
}

var documentListCmd = &cobra.Command{
	Use:   "list [document-id]",
	Short: "List a document's versions, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentList,
}

var documentRestoreCmd = &cobra.Command{
	Use:   "restore [document-id] [timestamp]",
	Short: "Restore a document to an earlier version",
	Long:  `Delete every version created after the given version timestamp (Unix milliseconds).`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentRestore,
}

var (
	documentContent string
	documentFile    string
	documentKind    string
	documentTitle   string
	documentChat    string
	documentAt      int64
)

func init() {
	documentSaveCmd.Flags().StringVarP(&documentContent, "content", "c", "", "version content")
	documentSaveCmd.Flags().StringVarP(&documentFile, "file", "f", "", "read content from file")
	documentSaveCmd.Flags().StringVarP(&documentKind, "kind", "k", string(domain.DocumentKindText), "text, code, image or sheet")
	documentSaveCmd.Flags().StringVarP(&documentTitle, "title", "t", "", "document title")
	documentSaveCmd.Flags().StringVar(&documentChat, "chat", "", "chat the document belongs to")
	documentSaveCmd.Flags().Int64Var(&documentAt, "at", 0, "version time in Unix milliseconds (defaults to now)")

	documentCmd.AddCommand(documentSaveCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentRestoreCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentSave(cmd *cobra.Command, args []string) error {
	content := documentContent
	if documentFile != "" {
		if content != "" {
			return errors.New("use either --content or --file")
		}
		data, err := os.ReadFile(documentFile)
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}
		content = string(data)
	}

	v, err := services.Documents.SaveVersion(actorContext(cmd), driving.SaveVersionRequest{
		DocumentID: args[0],
		ChatID:     documentChat,
		Kind:       domain.DocumentKind(documentKind),
		Title:      documentTitle,
		Content:    content,
		CreatedAt:  documentAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrOutOfOrder) {
			return fmt.Errorf("saving version: a newer version exists, retry with a later --at: %w", err)
		}
		return fmt.Errorf("saving version: %w", err)
	}
	cmd.Printf("Saved version %d of %s\n", v.CreatedAt, v.DocumentID)
	return nil
}

func runDocumentList(cmd *cobra.Command, args []string) error {
	versions, err := services.Documents.ListVersions(actorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("listing versions: %w", err)
	}
	if len(versions) == 0 {
		cmd.Println("No versions.")
		return nil
	}
	for _, v := range versions {
		cmd.Printf("%d  %s  %-5s  %d bytes  %s\n", v.CreatedAt, formatMillis(v.CreatedAt), v.Kind, len(v.Content), v.Title)
	}
	return nil
}

func runDocumentRestore(cmd *cobra.Command, args []string) error {
	ts, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", args[1], domain.ErrInvalidInput)
	}
	remaining, err := services.Documents.RestoreTo(actorContext(cmd), args[0], ts)
	if err != nil {
		return fmt.Errorf("restoring document: %w", err)
	}
	cmd.Printf("Restored %s to %d; %d version(s) remain\n", args[0], ts, remaining)
	return nil
}
