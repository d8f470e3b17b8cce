package toc

import (
	"strings"
	"sync"
	"unicode"

	"github.com/narrata/narrata/internal/types"
)

// SnippetCache holds truncated part-content views for display. Entries
// are derived state: they are invalidated and rebuilt, never patched,
// so a reclassified part can never show a stale snippet.
type SnippetCache struct {
	mu      sync.RWMutex
	limit   int
	entries map[string]string
}

// NewSnippetCache creates a cache truncating content to limit runes.
func NewSnippetCache(limit int) *SnippetCache {
	if limit <= 0 {
		limit = 120
	}
	return &SnippetCache{
		limit:   limit,
		entries: make(map[string]string),
	}
}

// Snippet returns the truncated content view for a part, computing and
// caching it on first access.
func (c *SnippetCache) Snippet(part types.BookPart) string {
	c.mu.RLock()
	s, ok := c.entries[part.ID]
	c.mu.RUnlock()
	if ok {
		return s
	}

	s = truncate(part.Content, c.limit)
	c.mu.Lock()
	c.entries[part.ID] = s
	c.mu.Unlock()
	return s
}

// Invalidate drops the cached view for a part id.
func (c *SnippetCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Reset drops every cached view. Used when the tree is rebuilt.
func (c *SnippetCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *SnippetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// truncate collapses whitespace and cuts at a rune boundary.
func truncate(content string, limit int) string {
	collapsed := strings.Join(strings.FieldsFunc(content, unicode.IsSpace), " ")
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return strings.TrimRight(string(runes[:limit]), " ") + "…"
}
