// Package redis implements driven.VoteStore on Redis.
//
// Votes for a chat live in one hash keyed by message id. A second hash maps
// every voted message to its chat so GetVote is a point lookup, and a set
// tracks which chats hold votes for the orphan sweep. Writes that touch more
// than one key run as Lua scripts so the three structures never disagree.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "chatstate:"

var upsertScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[2], ARGV[1])
if old and old ~= ARGV[2] then
  local oldKey = ARGV[4] .. old
  redis.call('HDEL', oldKey, ARGV[1])
  if redis.call('HLEN', oldKey) == 0 then
    redis.call('SREM', KEYS[3], old)
  end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

var deleteMessagesScript = redis.NewScript(`
local n = 0
for i = 2, #ARGV do
  if redis.call('HDEL', KEYS[1], ARGV[i]) == 1 then
    redis.call('HDEL', KEYS[2], ARGV[i])
    n = n + 1
  end
end
if redis.call('HLEN', KEYS[1]) == 0 then
  redis.call('SREM', KEYS[3], ARGV[1])
end
return n
`)

var deleteChatScript = redis.NewScript(`
local ids = redis.call('HKEYS', KEYS[1])
for _, id in ipairs(ids) do
  redis.call('HDEL', KEYS[2], id)
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[3], ARGV[1])
return #ids
`)

// VoteStore implements driven.VoteStore.
type VoteStore struct {
	client *redis.Client
	prefix string
}

var _ driven.VoteStore = (*VoteStore)(nil)

// Connect parses redisURL and pings the server, retrying with exponential
// backoff until maxWait has passed.
func Connect(ctx context.Context, redisURL string, maxWait time.Duration) (*VoteStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed, retrying: %v", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("connect to redis: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewVoteStore(client, DefaultPrefix), nil
}

// NewVoteStore creates a store from an existing client.
func NewVoteStore(client *redis.Client, prefix string) *VoteStore {
	return &VoteStore{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (s *VoteStore) Close() error {
	return s.client.Close()
}

func (s *VoteStore) chatKey(chatID string) string { return s.prefix + "votes:" + chatID }
func (s *VoteStore) indexKey() string             { return s.prefix + "vote-chat" }
func (s *VoteStore) chatsKey() string             { return s.prefix + "vote-chats" }

// UpsertVote stores the vote, replacing any earlier vote on the same message.
func (s *VoteStore) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	defer logger.DeferLogDuration("vote.Upsert", time.Now())()

	keys := []string{s.chatKey(vote.ChatID), s.indexKey(), s.chatsKey()}
	err := upsertScript.Run(ctx, s.client, keys,
		vote.MessageID, vote.ChatID, encodeVote(vote.IsUpvoted), s.prefix+"votes:").Err()
	if err != nil {
		return fmt.Errorf("voteStore.Upsert: %w", err)
	}
	return nil
}

// GetVote returns the vote on messageID or domain.ErrNotFound.
func (s *VoteStore) GetVote(ctx context.Context, messageID string) (*domain.Vote, error) {
	defer logger.DeferLogDuration("vote.Get", time.Now())()

	chatID, err := s.client.HGet(ctx, s.indexKey(), messageID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("voteStore.Get: %w", err)
	}

	flag, err := s.client.HGet(ctx, s.chatKey(chatID), messageID).Result()
	if errors.Is(err, redis.Nil) {
		// Deleted between the two reads.
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("voteStore.Get: %w", err)
	}
	return &domain.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: decodeVote(flag)}, nil
}

// ListVotesByChat returns the chat's votes ordered by message id.
func (s *VoteStore) ListVotesByChat(ctx context.Context, chatID string) ([]domain.Vote, error) {
	defer logger.DeferLogDuration("vote.ListByChat", time.Now())()

	entries, err := s.client.HGetAll(ctx, s.chatKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("voteStore.ListByChat: %w", err)
	}

	votes := make([]domain.Vote, 0, len(entries))
	for messageID, flag := range entries {
		votes = append(votes, domain.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: decodeVote(flag)})
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].MessageID < votes[j].MessageID })
	return votes, nil
}

// DeleteVotesByMessages removes the chat's votes on the given messages and
// returns how many existed.
func (s *VoteStore) DeleteVotesByMessages(ctx context.Context, chatID string, messageIDs []string) (int, error) {
	defer logger.DeferLogDuration("vote.DeleteByMessages", time.Now())()

	if len(messageIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, chatID)
	for _, id := range messageIDs {
		args = append(args, id)
	}

	keys := []string{s.chatKey(chatID), s.indexKey(), s.chatsKey()}
	n, err := deleteMessagesScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("voteStore.DeleteByMessages: %w", err)
	}
	return n, nil
}

// DeleteVotesByChat removes every vote in the chat.
func (s *VoteStore) DeleteVotesByChat(ctx context.Context, chatID string) (int, error) {
	defer logger.DeferLogDuration("vote.DeleteByChat", time.Now())()

	keys := []string{s.chatKey(chatID), s.indexKey(), s.chatsKey()}
	n, err := deleteChatScript.Run(ctx, s.client, keys, chatID).Int()
	if err != nil {
		return 0, fmt.Errorf("voteStore.DeleteByChat: %w", err)
	}
	return n, nil
}

// ListChatIDs returns the ids of chats that still have votes.
func (s *VoteStore) ListChatIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.chatsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("voteStore.ListChatIDs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func encodeVote(up bool) string {
	if up {
		return "1"
	}
	return "0"
}

func decodeVote(flag string) bool {
	return flag == "1"
}
