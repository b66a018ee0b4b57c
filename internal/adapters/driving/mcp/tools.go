package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// MessageInput is one message in an append_messages call.
type MessageInput struct {
	ID        string `json:"id,omitempty" jsonschema:"client generated message id; generated when empty"`
	AuthorID  string `json:"author_id,omitempty" jsonschema:"must equal actor_id when set; defaults to actor_id"`
	Role      string `json:"role" jsonschema:"user or assistant"`
	Content   string `json:"content"`
	State     string `json:"state,omitempty" jsonschema:"complete (default) or in_progress"`
	CreatedAt int64  `json:"created_at,omitempty" jsonschema:"Unix milliseconds; the server clock is used when zero"`
}

// AppendMessagesInput is the input schema for append_messages.
type AppendMessagesInput struct {
	ActorID  string         `json:"actor_id" jsonschema:"identity acting on the chat"`
	ChatID   string         `json:"chat_id"`
	Messages []MessageInput `json:"messages"`
}

// ChatRefInput identifies a chat.
type ChatRefInput struct {
	ActorID string `json:"actor_id,omitempty" jsonschema:"identity acting on the chat; empty reads public chats only"`
	ChatID  string `json:"chat_id"`
}

// MessageRefInput identifies a message.
type MessageRefInput struct {
	ActorID   string `json:"actor_id" jsonschema:"identity acting on the chat"`
	MessageID string `json:"message_id"`
}

// VoteInput is the input schema for vote.
type VoteInput struct {
	ActorID   string `json:"actor_id" jsonschema:"identity acting on the chat"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Type      string `json:"type" jsonschema:"up or down"`
}

// SaveChatInput is the input schema for save_chat.
type SaveChatInput struct {
	ActorID    string `json:"actor_id" jsonschema:"identity that will own the chat"`
	ChatID     string `json:"chat_id"`
	Title      string `json:"title,omitempty"`
	Visibility string `json:"visibility,omitempty" jsonschema:"private (default) or public"`
}

// ListChatsInput is the input schema for list_chats.
type ListChatsInput struct {
	ActorID string `json:"actor_id" jsonschema:"identity listing its chats"`
	OwnerID string `json:"owner_id,omitempty" jsonschema:"defaults to actor_id"`
}

// SetVisibilityInput is the input schema for set_visibility.
type SetVisibilityInput struct {
	ActorID    string `json:"actor_id" jsonschema:"identity acting on the chat"`
	ChatID     string `json:"chat_id"`
	Visibility string `json:"visibility" jsonschema:"private or public"`
}

// SaveVersionInput is the input schema for save_version.
type SaveVersionInput struct {
	ActorID    string `json:"actor_id" jsonschema:"identity saving the document"`
	DocumentID string `json:"document_id"`
	ChatID     string `json:"chat_id,omitempty" jsonschema:"optional chat the document belongs to"`
	Kind       string `json:"kind,omitempty" jsonschema:"text (default), code, image or sheet"`
	Title      string `json:"title,omitempty"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at,omitempty" jsonschema:"Unix milliseconds; must be after the latest version"`
}

// DocumentRefInput identifies a document.
type DocumentRefInput struct {
	ActorID    string `json:"actor_id,omitempty" jsonschema:"identity reading the document"`
	DocumentID string `json:"document_id"`
}

// RestoreVersionInput is the input schema for restore_version.
type RestoreVersionInput struct {
	ActorID    string `json:"actor_id" jsonschema:"identity owning the document"`
	DocumentID string `json:"document_id"`
	Timestamp  int64  `json:"timestamp" jsonschema:"created_at of the version to restore"`
}

// MessagesOutput lists messages.
type MessagesOutput struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count"`
}

// VotesOutput lists votes.
type VotesOutput struct {
	Votes []domain.Vote `json:"votes"`
	Count int           `json:"count"`
}

// ChatOutput wraps a single chat.
type ChatOutput struct {
	Chat domain.Chat `json:"chat"`
}

// ChatsOutput lists chats.
type ChatsOutput struct {
	Chats []domain.Chat `json:"chats"`
	Count int           `json:"count"`
}

// VersionOutput wraps a single version.
type VersionOutput struct {
	Version domain.Version `json:"version"`
}

// VersionsOutput lists versions.
type VersionsOutput struct {
	Versions []domain.Version `json:"versions"`
	Count    int              `json:"count"`
}

// DeleteChatOutput reports a completed chat deletion.
type DeleteChatOutput struct {
	ChatID  string `json:"chat_id"`
	Deleted bool   `json:"deleted"`
}

// RestoreOutput reports how many versions remain after a restore.
type RestoreOutput struct {
	Remaining int `json:"remaining"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "append_messages",
		Description: "Append messages to a chat. Messages whose id already exists are skipped, so a batch can be retried.",
	}, s.handleAppendMessages)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_trailing",
		Description: "Delete a message, every later message in its chat, and their votes",
	}, s.handleDeleteTrailing)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_messages",
		Description: "List a chat's messages in chronological order",
	}, s.handleListMessages)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vote",
		Description: "Set the vote on a message, replacing any earlier vote",
	}, s.handleVote)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_votes",
		Description: "List the votes of a chat",
	}, s.handleListVotes)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_chat",
		Description: "Create a chat owned by the actor",
	}, s.handleSaveChat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_chat",
		Description: "Get a chat",
	}, s.handleGetChat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_chats",
		Description: "List an owner's chats, newest first",
	}, s.handleListChats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_chat",
		Description: "Delete a chat with its messages, votes and chat-scoped documents. Safe to retry.",
	}, s.handleDeleteChat)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_visibility",
		Description: "Make a chat public or private",
	}, s.handleSetVisibility)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_version",
		Description: "Save a new version of a document",
	}, s.handleSaveVersion)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_versions",
		Description: "List a document's versions, oldest first",
	}, s.handleListVersions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "restore_version",
		Description: "Delete every version of a document newer than the given timestamp",
	}, s.handleRestoreVersion)
}

// asActor returns ctx carrying actorID as the acting identity.
func asActor(ctx context.Context, actorID string) context.Context {
	return domain.WithIdentity(ctx, domain.Identity{UserID: actorID})
}

func (s *Server) handleAppendMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AppendMessagesInput,
) (*mcp.CallToolResult, MessagesOutput, error) {
	msgs := make([]domain.Message, len(input.Messages))
	for i, m := range input.Messages {
		msgs[i] = domain.Message{
			ID:        m.ID,
			ChatID:    input.ChatID,
			AuthorID:  m.AuthorID,
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			State:     domain.MessageState(m.State),
			CreatedAt: m.CreatedAt,
		}
	}

	inserted, err := s.ports.Messages.Append(asActor(ctx, input.ActorID), msgs)
	if err != nil {
		return nil, MessagesOutput{}, err
	}
	return nil, messagesOutput(inserted), nil
}

func (s *Server) handleDeleteTrailing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MessageRefInput,
) (*mcp.CallToolResult, domain.TruncateResult, error) {
	result, err := s.ports.Coordinator.TruncateTrailing(asActor(ctx, input.ActorID), input.MessageID)
	if err != nil {
		return nil, domain.TruncateResult{}, err
	}
	return nil, *result, nil
}

func (s *Server) handleListMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatRefInput,
) (*mcp.CallToolResult, MessagesOutput, error) {
	msgs, err := s.ports.Messages.List(asActor(ctx, input.ActorID), input.ChatID)
	if err != nil {
		return nil, MessagesOutput{}, err
	}
	return nil, messagesOutput(msgs), nil
}

func (s *Server) handleVote(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VoteInput,
) (*mcp.CallToolResult, domain.Vote, error) {
	vote, err := s.ports.Votes.Vote(asActor(ctx, input.ActorID), input.ChatID, input.MessageID, domain.VoteType(input.Type))
	if err != nil {
		return nil, domain.Vote{}, err
	}
	return nil, *vote, nil
}

func (s *Server) handleListVotes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatRefInput,
) (*mcp.CallToolResult, VotesOutput, error) {
	votes, err := s.ports.Votes.List(asActor(ctx, input.ActorID), input.ChatID)
	if err != nil {
		return nil, VotesOutput{}, err
	}
	if votes == nil {
		votes = []domain.Vote{}
	}
	return nil, VotesOutput{Votes: votes, Count: len(votes)}, nil
}

func (s *Server) handleSaveChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	visibility := domain.Visibility(input.Visibility)
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	chat, err := s.ports.Chats.Create(asActor(ctx, input.ActorID), input.ChatID, input.ActorID, input.Title, visibility)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{Chat: *chat}, nil
}

func (s *Server) handleGetChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatRefInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	chat, err := s.ports.Chats.Get(asActor(ctx, input.ActorID), input.ChatID)
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{Chat: *chat}, nil
}

func (s *Server) handleListChats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListChatsInput,
) (*mcp.CallToolResult, ChatsOutput, error) {
	owner := input.OwnerID
	if owner == "" {
		owner = input.ActorID
	}
	chats, err := s.ports.Chats.List(asActor(ctx, input.ActorID), owner)
	if err != nil {
		return nil, ChatsOutput{}, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return nil, ChatsOutput{Chats: chats, Count: len(chats)}, nil
}

func (s *Server) handleDeleteChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatRefInput,
) (*mcp.CallToolResult, DeleteChatOutput, error) {
	if err := s.ports.Coordinator.DeleteChat(asActor(ctx, input.ActorID), input.ChatID); err != nil {
		return nil, DeleteChatOutput{}, err
	}
	return nil, DeleteChatOutput{ChatID: input.ChatID, Deleted: true}, nil
}

func (s *Server) handleSetVisibility(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetVisibilityInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	chat, err := s.ports.Chats.SetVisibility(asActor(ctx, input.ActorID), input.ChatID, domain.Visibility(input.Visibility))
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, ChatOutput{Chat: *chat}, nil
}

func (s *Server) handleSaveVersion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveVersionInput,
) (*mcp.CallToolResult, VersionOutput, error) {
	version, err := s.ports.Documents.SaveVersion(asActor(ctx, input.ActorID), driving.SaveVersionRequest{
		DocumentID: input.DocumentID,
		ChatID:     input.ChatID,
		Kind:       domain.DocumentKind(input.Kind),
		Title:      input.Title,
		Content:    input.Content,
		CreatedAt:  input.CreatedAt,
	})
	if err != nil {
		return nil, VersionOutput{}, err
	}
	return nil, VersionOutput{Version: *version}, nil
}

func (s *Server) handleListVersions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentRefInput,
) (*mcp.CallToolResult, VersionsOutput, error) {
	versions, err := s.ports.Documents.ListVersions(asActor(ctx, input.ActorID), input.DocumentID)
	if err != nil {
		return nil, VersionsOutput{}, err
	}
	if versions == nil {
		versions = []domain.Version{}
	}
	return nil, VersionsOutput{Versions: versions, Count: len(versions)}, nil
}

func (s *Server) handleRestoreVersion(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RestoreVersionInput,
) (*mcp.CallToolResult, RestoreOutput, error) {
	remaining, err := s.ports.Documents.RestoreTo(asActor(ctx, input.ActorID), input.DocumentID, input.Timestamp)
	if err != nil {
		return nil, RestoreOutput{}, err
	}
	return nil, RestoreOutput{Remaining: remaining}, nil
}

func messagesOutput(msgs []domain.Message) MessagesOutput {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return MessagesOutput{Messages: msgs, Count: len(msgs)}
}
