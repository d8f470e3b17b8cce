package session

import "sync"

// Selection is the explicit selected-book state. Changing it cancels
// the previous book's in-flight operations and notifies subscribers
// through registered callbacks.
type Selection struct {
	mu        sync.Mutex
	bookID    string
	registry  *Registry
	callbacks []func(bookID string)
}

// NewSelection creates selection state wired to a cancellation registry.
func NewSelection(registry *Registry) *Selection {
	return &Selection{registry: registry}
}

// Selected returns the selected book id, or false if none is selected.
func (s *Selection) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID, s.bookID != ""
}

// OnChange registers a callback invoked whenever the selection changes.
// The callback receives the new book id, "" for a cleared selection.
func (s *Selection) OnChange(fn func(bookID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Select moves the selection to bookID. Selecting the current book is a
// no-op; otherwise the previous book's in-flight operations are
// cancelled before subscribers are notified.
func (s *Selection) Select(bookID string) {
	s.mu.Lock()
	if s.bookID == bookID {
		s.mu.Unlock()
		return
	}
	prev := s.bookID
	s.bookID = bookID
	callbacks := make([]func(string), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	if prev != "" && s.registry != nil {
		s.registry.CancelBook(prev)
	}
	for _, fn := range callbacks {
		fn(bookID)
	}
}

// Clear drops the selection and cancels its in-flight operations.
func (s *Selection) Clear() {
	s.Select("")
}
