package domain

// Visibility controls who may read a chat.
type Visibility string

// Chat visibilities.
const (
	// VisibilityPrivate restricts reads to the owner.
	VisibilityPrivate Visibility = "private"

	// VisibilityPublic allows any identity to read the chat.
	VisibilityPublic Visibility = "public"
)

// IsValid returns true if the visibility is recognised.
func (v Visibility) IsValid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// String returns the string representation.
func (v Visibility) String() string {
	return string(v)
}

// Chat is a conversation owned by the identity that created it.
type Chat struct {
	// ID is the externally generated, unique chat identifier.
	ID string `json:"id" yaml:"id"`

	// OwnerID is the user that created the chat.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// Title is a short human-readable label.
	Title string `json:"title" yaml:"title"`

	// Visibility controls read access for identities other than the owner.
	Visibility Visibility `json:"visibility" yaml:"visibility"`

	// CreatedAt is the creation time in Unix milliseconds.
	CreatedAt int64 `json:"created_at" yaml:"created_at"`

	// DeletedAt is set when a delete cascade has started. A deleted chat is
	// kept as a tombstone so the cascade can be retried, and is invisible to
	// every read.
	DeletedAt int64 `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

// IsDeleted reports whether the chat is a tombstone.
func (c *Chat) IsDeleted() bool {
	return c.DeletedAt != 0
}

// IsOwnedBy reports whether userID owns the chat.
func (c *Chat) IsOwnedBy(userID string) bool {
	return userID != "" && c.OwnerID == userID
}

// IsReadableBy reports whether userID may read the chat.
// Public chats are readable by anyone, including anonymous callers.
func (c *Chat) IsReadableBy(userID string) bool {
	return c.Visibility == VisibilityPublic || c.IsOwnedBy(userID)
}
