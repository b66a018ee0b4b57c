package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// uriScheme is the custom URI scheme for chatstate resources.
const uriScheme = "chatstate://"

// Resources are read without an identity, so only public chats and their
// documents resolve.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "chats/{chatId}",
		Name:        "chat-transcript",
		Description: "A public chat with its messages",
		MIMEType:    "application/json",
	}, s.handleChatResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Latest content of a document",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)
}

// chatTranscript is the JSON body of a chat resource.
type chatTranscript struct {
	Chat     domain.Chat      `json:"chat"`
	Messages []domain.Message `json:"messages"`
}

func (s *Server) handleChatResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	chatID := extractID(req.Params.URI, "chats/")
	if chatID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chat, err := s.ports.Chats.Get(ctx, chatID)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}
	msgs, err := s.ports.Messages.List(ctx, chatID)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}

	data, err := json.MarshalIndent(chatTranscript{Chat: *chat, Messages: msgs}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chat: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	documentID := extractID(req.Params.URI, "documents/")
	if documentID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	version, err := s.ports.Documents.Latest(ctx, documentID)
	if err != nil {
		return nil, resourceError(req.Params.URI, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     version.Content,
		}},
	}, nil
}

// resourceError hides whether a private resource exists.
func resourceError(uri string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
		return mcp.ResourceNotFoundError(uri)
	}
	return err
}

// extractID returns the single path segment after uriScheme+prefix.
func extractID(uri, prefix string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
