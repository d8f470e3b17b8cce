// Package types provides shared domain types used across multiple packages.
// This package has no dependencies on other narrata packages to avoid import cycles.
package types

import "time"

// Book is a single uploaded book as returned by the server.
type Book struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	CreatedAt        time.Time `json:"created_at"`
	FileType         string    `json:"file_type"`
	CoverImageBase64 string    `json:"cover_image_base64,omitempty"`
	IsParsed         bool      `json:"is_parsed"`
}

// BookPart is one segment of a book's structure in flat wire form.
// ParentID is nil only for the root part. The tree form lives in the
// toc package; the flat form never carries children.
type BookPart struct {
	ID                string    `json:"id"`
	BookID            string    `json:"book_id"`
	ParentID          *string   `json:"parent_id"`
	Label             string    `json:"label"`
	SiblingIndex      int       `json:"sibling_index"`
	IsStoryPart       bool      `json:"is_story_part"`
	IsEntityExtracted bool      `json:"is_entity_extracted,omitempty"`
	Content           string    `json:"content,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IsRoot reports whether the part is the root of its book's hierarchy.
func (p BookPart) IsRoot() bool {
	return p.ParentID == nil
}

// TocBookPart is the nested table-of-contents wire shape. The server
// returns the hierarchy pre-nested; the client flattens it and rebuilds
// the tree locally so structural invariants are checked in one place.
type TocBookPart struct {
	ID           string        `json:"id"`
	BookID       string        `json:"book_id"`
	ParentID     *string       `json:"parent_id"`
	Label        string        `json:"label"`
	SiblingIndex int           `json:"sibling_index"`
	IsStoryPart  bool          `json:"is_story_part"`
	CreatedAt    time.Time     `json:"created_at"`
	Children     []TocBookPart `json:"children"`
}

// BookPartUpdate is the body for the part update endpoint. The target
// value is always explicit so the update is idempotent and safe to retry.
type BookPartUpdate struct {
	IsStoryPart bool `json:"is_story_part"`
}
