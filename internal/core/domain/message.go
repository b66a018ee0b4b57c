package domain

import "sort"

// Role identifies who produced a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MessageState tracks whether a message is still being produced.
type MessageState string

// Message states.
const (
	MessageStateComplete   MessageState = "complete"
	MessageStateInProgress MessageState = "in_progress"
)

// IsValid returns true if the state is recognised.
func (s MessageState) IsValid() bool {
	return s == MessageStateComplete || s == MessageStateInProgress
}

// Message is a single entry in a chat.
// Messages are never updated in place: an edit is a truncate followed by a new append.
type Message struct {
	// ID is client generated and globally unique.
	ID string `json:"id" yaml:"id"`

	// ChatID references the owning chat.
	ChatID string `json:"chat_id" yaml:"chat_id"`

	// Role is user or assistant.
	Role Role `json:"role" yaml:"role"`

	// Content is the message body.
	Content string `json:"content" yaml:"content"`

	// AuthorID is the user on whose behalf the message was written.
	AuthorID string `json:"author_id" yaml:"author_id"`

	// State is complete or in_progress.
	State MessageState `json:"state" yaml:"state"`

	// CreatedAt orders messages within a chat, in Unix milliseconds.
	CreatedAt int64 `json:"created_at" yaml:"created_at"`
}

// Validate checks the fields every stored message must carry.
func (m *Message) Validate() error {
	if m.ID == "" || m.ChatID == "" || m.AuthorID == "" {
		return ErrInvalidInput
	}
	if !m.Role.IsValid() || !m.State.IsValid() {
		return ErrInvalidInput
	}
	if m.CreatedAt <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// SortMessages orders messages by CreatedAt ascending.
// Ties are broken by ID so the order is deterministic across stores.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt != msgs[j].CreatedAt {
			return msgs[i].CreatedAt < msgs[j].CreatedAt
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// TruncateResult reports what a trailing-message truncation removed.
type TruncateResult struct {
	DeletedMessageCount int `json:"deleted_message_count"`
	DeletedVoteCount    int `json:"deleted_vote_count"`
}
