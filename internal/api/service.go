package api

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/narrata/narrata/internal/types"
)

// Service exposes the Narrata server's resources as typed operations.
// One-shot operations retry transient failures a bounded number of
// times; polling callers pass retries=0 and rely on their next tick.
type Service struct {
	client  *Client
	retries uint
}

// NewService wraps a Client with typed endpoint methods.
// retries is the number of additional attempts for transient failures.
func NewService(client *Client, retries uint) *Service {
	return &Service{client: client, retries: retries}
}

// withRetry runs fn, retrying only transient failures.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	if s.retries == 0 {
		return fn()
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.retries+1),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
	)
}

// ListBooks fetches the caller's uploaded books.
func (s *Service) ListBooks(ctx context.Context) ([]types.Book, error) {
	var books []types.Book
	err := s.withRetry(ctx, func() error {
		return s.client.Get(ctx, "/books/", &books)
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// DeleteBook removes a book and everything derived from it.
func (s *Service) DeleteBook(ctx context.Context, bookID string) (types.Book, error) {
	var book types.Book
	err := s.withRetry(ctx, func() error {
		return s.client.Delete(ctx, "/books/delete/"+bookID, &book)
	})
	return book, err
}

// GetTOC fetches the table of contents for a book as a flat part list.
// The server nests children in its response; the client flattens it and
// rebuilds the tree locally so structural invariants are checked in one
// place (the toc package).
func (s *Service) GetTOC(ctx context.Context, bookID string) ([]types.BookPart, error) {
	var nested []types.TocBookPart
	err := s.withRetry(ctx, func() error {
		return s.client.Get(ctx, "/book_parts/toc/"+bookID, &nested)
	})
	if err != nil {
		return nil, err
	}
	return flattenTOC(nested), nil
}

// flattenTOC converts the nested wire shape into flat parts.
// Iterative: TOC depth is unbounded.
func flattenTOC(roots []types.TocBookPart) []types.BookPart {
	var flat []types.BookPart
	stack := make([]types.TocBookPart, len(roots))
	for i := range roots {
		stack[len(roots)-1-i] = roots[i]
	}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		flat = append(flat, types.BookPart{
			ID:           part.ID,
			BookID:       part.BookID,
			ParentID:     part.ParentID,
			Label:        part.Label,
			SiblingIndex: part.SiblingIndex,
			IsStoryPart:  part.IsStoryPart,
			CreatedAt:    part.CreatedAt,
		})
		for i := len(part.Children) - 1; i >= 0; i-- {
			stack = append(stack, part.Children[i])
		}
	}
	return flat
}

// GetBookParts fetches all parts of a book including content.
func (s *Service) GetBookParts(ctx context.Context, bookID string) ([]types.BookPart, error) {
	var parts []types.BookPart
	err := s.withRetry(ctx, func() error {
		return s.client.Get(ctx, "/book_parts/book_id/"+bookID, &parts)
	})
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// GetBookPart fetches a single part including content.
func (s *Service) GetBookPart(ctx context.Context, bookPartID string) (types.BookPart, error) {
	var part types.BookPart
	err := s.withRetry(ctx, func() error {
		return s.client.Get(ctx, "/book_parts/book_part_id/"+bookPartID, &part)
	})
	return part, err
}

// UpdateBookPart persists a part's narrative classification. The target
// value is explicit, never a toggle, so retries are safe.
func (s *Service) UpdateBookPart(ctx context.Context, bookPartID string, isStoryPart bool) (types.BookPart, error) {
	var updated types.BookPart
	err := s.withRetry(ctx, func() error {
		return s.client.Put(ctx, "/book_parts/update/"+bookPartID, types.BookPartUpdate{IsStoryPart: isStoryPart}, &updated)
	})
	return updated, err
}

// TriggerExtraction starts the entity-extraction job for a book.
func (s *Service) TriggerExtraction(ctx context.Context, bookID string) error {
	return s.withRetry(ctx, func() error {
		return s.client.Post(ctx, "/processes/trigger_extraction/"+bookID, struct{}{}, nil)
	})
}

// GetExtractionProcess fetches the extraction status record for a book.
// Never retried here: the tracker's next tick is the retry.
func (s *Service) GetExtractionProcess(ctx context.Context, bookID string) (types.ExtractionProcess, error) {
	var proc types.ExtractionProcess
	err := s.client.Get(ctx, "/processes/entity_extraction/"+bookID, &proc)
	return proc, err
}

// GetEntities fetches the extraction result set for a book. An empty
// slice is a valid result, distinct from a transport failure.
func (s *Service) GetEntities(ctx context.Context, bookID string) ([]types.Entity, error) {
	var entities []types.Entity
	err := s.withRetry(ctx, func() error {
		return s.client.Get(ctx, "/entities/book_id/"+bookID, &entities)
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}
