package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages versioned documents.
type DocumentService struct {
	versions driven.VersionStore
	clock    driven.Clock
	guard    *Guard
}

// NewDocumentService creates a new document service.
func NewDocumentService(versions driven.VersionStore, clock driven.Clock, guard *Guard) *DocumentService {
	return &DocumentService{
		versions: versions,
		clock:    clock,
		guard:    guard,
	}
}

// SaveVersion appends a version.
// The first save fixes the document's owner and chat scope; later saves must
// come from the same owner and may omit the scope.
func (s *DocumentService) SaveVersion(ctx context.Context, req driving.SaveVersionRequest) (*domain.Version, error) {
	if s.versions == nil {
		return nil, domain.ErrNotImplemented
	}
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if req.DocumentID == "" || req.CreatedAt < 0 {
		return nil, domain.ErrInvalidInput
	}
	if req.Kind == "" {
		req.Kind = domain.DocumentKindText
	}
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("document kind %q: %w", req.Kind, domain.ErrInvalidInput)
	}

	latest, err := s.versions.LatestVersion(ctx, req.DocumentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		latest = nil
	case err != nil:
		return nil, err
	}
	if latest != nil {
		if latest.OwnerID != userID {
			return nil, domain.ErrUnauthorized
		}
		if req.ChatID == "" {
			req.ChatID = latest.ChatID
		}
		if req.ChatID != latest.ChatID {
			return nil, fmt.Errorf("document %s is scoped to chat %q: %w", req.DocumentID, latest.ChatID, domain.ErrInvalidInput)
		}
	}
	if req.ChatID != "" {
		if _, err := s.guard.OwnedChat(ctx, req.ChatID); err != nil {
			return nil, err
		}
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = s.clock.Now()
	}

	version := &domain.Version{
		DocumentID: req.DocumentID,
		ChatID:     req.ChatID,
		OwnerID:    userID,
		Kind:       req.Kind,
		Title:      req.Title,
		Content:    req.Content,
		CreatedAt:  req.CreatedAt,
	}
	if err := s.versions.SaveVersion(ctx, version); err != nil {
		return nil, err
	}
	logger.Debug("document %s: saved version at %d", version.DocumentID, version.CreatedAt)
	return version, nil
}

// ListVersions returns a document's versions in ascending order.
// A document with no versions lists as empty.
func (s *DocumentService) ListVersions(ctx context.Context, documentID string) ([]domain.Version, error) {
	if s.versions == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.guard.ReadableDocument(ctx, documentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Version{}, nil
		}
		return nil, err
	}
	return s.versions.ListVersions(ctx, documentID)
}

// Latest returns the newest version of a document.
func (s *DocumentService) Latest(ctx context.Context, documentID string) (*domain.Version, error) {
	if s.versions == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.guard.ReadableDocument(ctx, documentID)
}

// RestoreTo makes the version at timestamp the latest by deleting every
// newer version. Calling it again with the same timestamp deletes nothing.
func (s *DocumentService) RestoreTo(ctx context.Context, documentID string, timestamp int64) (int, error) {
	if s.versions == nil {
		return 0, domain.ErrNotImplemented
	}
	if _, err := s.guard.OwnedDocument(ctx, documentID); err != nil {
		return 0, err
	}
	if _, err := s.versions.GetVersion(ctx, documentID, timestamp); err != nil {
		return 0, err
	}

	deleted, err := s.versions.DeleteVersionsAfter(ctx, documentID, timestamp)
	if err != nil {
		return 0, fmt.Errorf("deleting versions after %d: %w", timestamp, err)
	}
	remaining, err := s.versions.ListVersions(ctx, documentID)
	if err != nil {
		return 0, err
	}
	logger.Debug("document %s: restored to %d, deleted %d versions", documentID, timestamp, deleted)
	return len(remaining), nil
}
