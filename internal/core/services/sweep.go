package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure Sweeper implements the interface.
var _ driving.Sweeper = (*Sweeper)(nil)

// sweepConcurrency bounds the number of chats purged at once.
const sweepConcurrency = 4

// Sweeper reclaims records left behind when an append races a chat delete,
// or when a cascade was abandoned and never retried.
type Sweeper struct {
	coord     *Coordinator
	retention time.Duration
}

// NewSweeper creates a sweeper that reuses the coordinator's stores.
// Tombstones older than retention are purged.
func NewSweeper(coord *Coordinator, retention time.Duration) *Sweeper {
	return &Sweeper{coord: coord, retention: retention}
}

// SweepOrphans purges the contents of every chat that is missing or
// tombstoned, then removes expired tombstones.
func (s *Sweeper) SweepOrphans(ctx context.Context) (domain.SweepResult, error) {
	c := s.coord
	var result domain.SweepResult
	if c == nil || c.chats == nil {
		return result, domain.ErrNotImplemented
	}
	defer logger.DeferLogDuration("sweep.orphans", time.Now())()

	referenced, err := s.referencedChats(ctx)
	if err != nil {
		return result, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, chatID := range referenced {
		g.Go(func() error {
			chat, err := c.chats.GetChat(gctx, chatID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
			case err != nil:
				return fmt.Errorf("checking chat %s: %w", chatID, err)
			case !chat.IsDeleted():
				return nil
			}

			purged, err := c.purgeContents(gctx, chatID)
			if err != nil {
				return err
			}
			mu.Lock()
			result.OrphanChats++
			result.Messages += purged.Messages
			result.Votes += purged.Votes
			result.Versions += purged.Versions
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	cutoff := c.clock.Now() - s.retention.Milliseconds()
	if result.Tombstones, err = c.chats.PurgeDeleted(ctx, cutoff); err != nil {
		return result, fmt.Errorf("purging tombstones: %w", err)
	}
	if result.Total() > 0 || result.Tombstones > 0 {
		logger.Info("orphan sweep: %d chats, %d messages, %d votes, %d versions, %d tombstones",
			result.OrphanChats, result.Messages, result.Votes, result.Versions, result.Tombstones)
	}
	return result, nil
}

// referencedChats returns every chat id referenced by a message, vote or scoped version.
func (s *Sweeper) referencedChats(ctx context.Context) ([]string, error) {
	c := s.coord
	seen := make(map[string]struct{})
	for name, list := range map[string]func(context.Context) ([]string, error){
		"messages": c.messages.ListChatIDs,
		"votes":    c.votes.ListChatIDs,
		"versions": c.versions.ListChatIDs,
	} {
		ids, err := list(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing chats referenced by %s: %w", name, err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// SweepVotes removes votes whose message is gone from a live chat.
func (s *Sweeper) SweepVotes(ctx context.Context) (domain.SweepResult, error) {
	c := s.coord
	var result domain.SweepResult
	if c == nil || c.votes == nil || c.messages == nil {
		return result, domain.ErrNotImplemented
	}

	chatIDs, err := c.votes.ListChatIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("listing voted chats: %w", err)
	}
	for _, chatID := range chatIDs {
		votes, err := c.votes.ListVotesByChat(ctx, chatID)
		if err != nil {
			return result, err
		}
		msgs, err := c.messages.ListMessagesByChat(ctx, chatID)
		if err != nil {
			return result, err
		}
		live := make(map[string]bool, len(msgs))
		for _, m := range msgs {
			live[m.ID] = true
		}
		var dangling []string
		for _, v := range votes {
			if !live[v.MessageID] {
				dangling = append(dangling, v.MessageID)
			}
		}
		if len(dangling) == 0 {
			continue
		}
		n, err := c.votes.DeleteVotesByMessages(ctx, chatID, dangling)
		if err != nil {
			return result, fmt.Errorf("deleting dangling votes of chat %s: %w", chatID, err)
		}
		result.Votes += n
	}
	if result.Votes > 0 {
		logger.Info("vote sweep: removed %d dangling votes", result.Votes)
	}
	return result, nil
}
