package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// --- Clock and id fakes ---

// fakeClock returns 1000, 1001, ... so tests can predict timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func newFakeClock() *fakeClock { return &fakeClock{now: 999} }

func (c *fakeClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// set moves the clock so the next Now returns t.
func (c *fakeClock) set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t - 1
}

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("gen-%d", g.n)
}

var (
	_ driven.Clock       = (*fakeClock)(nil)
	_ driven.IDGenerator = (*sequenceIDs)(nil)
)

// --- Failing store wrappers ---

// flakyVoteStore fails DeleteVotesByChat and DeleteVotesByMessages while failing is set.
type flakyVoteStore struct {
	*memory.VoteStore
	failing bool
}

var errStoreUnavailable = errors.New("store unavailable")

func (s *flakyVoteStore) DeleteVotesByChat(ctx context.Context, chatID string) (int, error) {
	if s.failing {
		return 0, errStoreUnavailable
	}
	return s.VoteStore.DeleteVotesByChat(ctx, chatID)
}

func (s *flakyVoteStore) DeleteVotesByMessages(ctx context.Context, chatID string, ids []string) (int, error) {
	if s.failing {
		return 0, errStoreUnavailable
	}
	return s.VoteStore.DeleteVotesByMessages(ctx, chatID, ids)
}

// flakyMessageStore fails DeleteMessagesByChat while failing is set.
type flakyMessageStore struct {
	*memory.MessageStore
	failing bool
}

func (s *flakyMessageStore) DeleteMessagesByChat(ctx context.Context, chatID string) (int, error) {
	if s.failing {
		return 0, errStoreUnavailable
	}
	return s.MessageStore.DeleteMessagesByChat(ctx, chatID)
}

// --- Sweeper mock for scheduler tests ---

type mockSweeper struct {
	mu          sync.Mutex
	orphanCalls int
	voteCalls   int
	err         error
}

func (m *mockSweeper) SweepOrphans(_ context.Context) (domain.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orphanCalls++
	return domain.SweepResult{Messages: 2, Votes: 1}, m.err
}

func (m *mockSweeper) SweepVotes(_ context.Context) (domain.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voteCalls++
	return domain.SweepResult{Votes: 3}, m.err
}

func (m *mockSweeper) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orphanCalls, m.voteCalls
}

var _ driving.Sweeper = (*mockSweeper)(nil)

// --- Test environment ---

// testEnv wires every service over memory stores.
type testEnv struct {
	chats    *memory.ChatStore
	messages driven.MessageStore
	votes    driven.VoteStore
	versions *memory.VersionStore
	clock    *fakeClock

	guard       *Guard
	chatSvc     *ChatService
	messageSvc  *MessageService
	voteSvc     *VoteService
	documentSvc *DocumentService
	coord       *Coordinator
	sweeper     *Sweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, memory.NewMessageStore(), memory.NewVoteStore())
}

func newTestEnvWith(t *testing.T, messages driven.MessageStore, votes driven.VoteStore) *testEnv {
	t.Helper()
	env := &testEnv{
		chats:    memory.NewChatStore(),
		messages: messages,
		votes:    votes,
		versions: memory.NewVersionStore(),
		clock:    newFakeClock(),
	}
	env.guard = NewGuard(env.chats, env.versions)
	env.chatSvc = NewChatService(env.chats, env.clock, env.guard)
	env.messageSvc = NewMessageService(env.messages, env.clock, &sequenceIDs{}, env.guard)
	env.voteSvc = NewVoteService(env.votes, env.messages, env.guard)
	env.documentSvc = NewDocumentService(env.versions, env.clock, env.guard)
	env.coord = NewCoordinator(env.chats, env.messages, env.votes, env.versions, env.clock, env.guard)
	env.sweeper = NewSweeper(env.coord, domain.DefaultSchedulerConfig().TombstoneRetention)
	return env
}

// as returns a context acting as userID.
func as(userID string) context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{UserID: userID})
}

// msg builds a complete user message.
func msg(id, chatID string, createdAt int64) domain.Message {
	return domain.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      domain.RoleUser,
		Content:   "content of " + id,
		AuthorID:  "u1",
		State:     domain.MessageStateComplete,
		CreatedAt: createdAt,
	}
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

// seedChat creates chat c owned by u1 and appends msgs.
func (e *testEnv) seedChat(t *testing.T, chatID string, msgs ...domain.Message) {
	t.Helper()
	_, err := e.chatSvc.Create(as("u1"), chatID, "u1", "Chat "+chatID, domain.VisibilityPrivate)
	require.NoError(t, err)
	if len(msgs) > 0 {
		_, err = e.messageSvc.Append(as("u1"), msgs)
		require.NoError(t, err)
	}
}
