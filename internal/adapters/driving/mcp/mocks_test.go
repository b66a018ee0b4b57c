package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/clock"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/core/services"
)

var errBackend = errors.New("backend unavailable")

// failingCoordinator is a driving.Coordinator whose every call fails.
type failingCoordinator struct{}

func (failingCoordinator) DeleteChat(_ context.Context, _ string) error {
	return errBackend
}

func (failingCoordinator) TruncateTrailing(_ context.Context, _ string) (*domain.TruncateResult, error) {
	return nil, errBackend
}

var _ driving.Coordinator = failingCoordinator{}

// newTestPorts wires real services over memory stores.
func newTestPorts(t *testing.T) *Ports {
	t.Helper()
	chats := memory.NewChatStore()
	messages := memory.NewMessageStore()
	votes := memory.NewVoteStore()
	versions := memory.NewVersionStore()
	clk := clock.NewMonotonic()
	guard := services.NewGuard(chats, versions)

	return &Ports{
		Chats:       services.NewChatService(chats, clk, guard),
		Messages:    services.NewMessageService(messages, clk, clock.NewUUIDGenerator(), guard),
		Votes:       services.NewVoteService(votes, messages, guard),
		Documents:   services.NewDocumentService(versions, clk, guard),
		Coordinator: services.NewCoordinator(chats, messages, votes, versions, clk, guard),
	}
}
