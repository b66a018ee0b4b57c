package domain

import "sort"

// DocumentKind classifies the content of a document.
type DocumentKind string

// Document kinds.
const (
	DocumentKindText  DocumentKind = "text"
	DocumentKindCode  DocumentKind = "code"
	DocumentKindImage DocumentKind = "image"
	DocumentKindSheet DocumentKind = "sheet"
)

// IsValid returns true if the kind is recognised.
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentKindText, DocumentKindCode, DocumentKindImage, DocumentKindSheet:
		return true
	default:
		return false
	}
}

// Version is one snapshot of a logical document.
// A document is the sequence of its versions ordered by CreatedAt.
type Version struct {
	// DocumentID is the logical document identifier, stable across versions.
	DocumentID string `json:"document_id" yaml:"document_id"`

	// ChatID scopes the document to a chat. Empty for free-standing documents.
	// Deleting the chat deletes every version scoped to it.
	ChatID string `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`

	// OwnerID is the user that saved the version.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// Kind classifies the content.
	Kind DocumentKind `json:"kind" yaml:"kind"`

	// Title is the document title at this version.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Content is the full snapshot.
	Content string `json:"content" yaml:"content"`

	// CreatedAt orders versions, in Unix milliseconds.
	CreatedAt int64 `json:"created_at" yaml:"created_at"`
}

// SortVersions orders versions by CreatedAt ascending.
func SortVersions(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].CreatedAt < versions[j].CreatedAt
	})
}
