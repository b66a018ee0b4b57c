// Package mcp provides an MCP (Model Context Protocol) server adapter for chatstate.
// It lets AI assistants append messages, vote, truncate and version documents
// through the same services as the HTTP API.
package mcp

import "errors"

// Errors returned by Ports.Validate.
var (
	ErrMissingChatService     = errors.New("mcp: chat service is required")
	ErrMissingMessageService  = errors.New("mcp: message service is required")
	ErrMissingVoteService     = errors.New("mcp: vote service is required")
	ErrMissingDocumentService = errors.New("mcp: document service is required")
	ErrMissingCoordinator     = errors.New("mcp: coordinator is required")
)
