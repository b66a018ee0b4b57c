package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// SaveVersionRequest describes a new document version.
type SaveVersionRequest struct {
	DocumentID string
	// ChatID optionally scopes the document to a chat the caller owns.
	ChatID  string
	Kind    domain.DocumentKind
	Title   string
	Content string
	// CreatedAt must be after the latest version. Zero uses the clock.
	CreatedAt int64
}

// DocumentService manages versioned documents.
type DocumentService interface {
	// SaveVersion appends a version.
	// Returns domain.ErrOutOfOrder if CreatedAt is not after the latest version.
	SaveVersion(ctx context.Context, req SaveVersionRequest) (*domain.Version, error)

	// ListVersions returns a document's versions in ascending order.
	ListVersions(ctx context.Context, documentID string) ([]domain.Version, error)

	// Latest returns the newest version of a document.
	Latest(ctx context.Context, documentID string) (*domain.Version, error)

	// RestoreTo deletes every version created after timestamp and returns
	// the number of versions that remain.
	// Returns domain.ErrNotFound unless a version exists at exactly timestamp.
	RestoreTo(ctx context.Context, documentID string, timestamp int64) (int, error)
}
