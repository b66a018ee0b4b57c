package mcp

import (
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	Chats       driving.ChatService
	Messages    driving.MessageService
	Votes       driving.VoteService
	Documents   driving.DocumentService
	Coordinator driving.Coordinator
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Chats == nil:
		return ErrMissingChatService
	case p.Messages == nil:
		return ErrMissingMessageService
	case p.Votes == nil:
		return ErrMissingVoteService
	case p.Documents == nil:
		return ErrMissingDocumentService
	case p.Coordinator == nil:
		return ErrMissingCoordinator
	}
	return nil
}
