package driven

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// VersionStore persists document versions.
// Indexes: by document id ordered by CreatedAt, by chat scope.
type VersionStore interface {
	// SaveVersion appends a version.
	// Returns domain.ErrOutOfOrder unless CreatedAt is strictly greater than the
	// latest stored version of the same document. The check and the insert are atomic.
	SaveVersion(ctx context.Context, version *domain.Version) error

	// GetVersion retrieves the version of a document created at exactly createdAt.
	// Returns domain.ErrNotFound if absent.
	GetVersion(ctx context.Context, documentID string, createdAt int64) (*domain.Version, error)

	// LatestVersion returns the newest version of a document.
	// Returns domain.ErrNotFound if the document has no versions.
	LatestVersion(ctx context.Context, documentID string) (*domain.Version, error)

	// ListVersions returns a document's versions in ascending CreatedAt order.
	ListVersions(ctx context.Context, documentID string) ([]domain.Version, error)

	// DeleteVersionsAfter removes every version with CreatedAt > after.
	// Returns the number deleted.
	DeleteVersionsAfter(ctx context.Context, documentID string, after int64) (int, error)

	// DeleteVersionsByChat removes every version scoped to a chat.
	// Returns the number deleted.
	DeleteVersionsByChat(ctx context.Context, chatID string) (int, error)

	// ListChatIDs returns the distinct chat scopes referenced by stored versions.
	ListChatIDs(ctx context.Context) ([]string, error)
}
