package domain

// VoteType is the direction of a vote.
type VoteType string

// Vote directions.
const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// IsValid returns true if the vote type is recognised.
func (t VoteType) IsValid() bool {
	return t == VoteUp || t == VoteDown
}

// IsUpvote converts the direction to the stored flag.
func (t VoteType) IsUpvote() bool {
	return t == VoteUp
}

// Vote is the single piece of feedback attached to a message.
// There is at most one vote per MessageID; a later vote overwrites IsUpvoted.
type Vote struct {
	ChatID    string `json:"chat_id" yaml:"chat_id"`
	MessageID string `json:"message_id" yaml:"message_id"`
	IsUpvoted bool   `json:"is_upvoted" yaml:"is_upvoted"`
}
