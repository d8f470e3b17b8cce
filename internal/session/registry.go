// Package session holds explicit per-session state: which book is
// selected and which asynchronous operations are in flight for it.
// There is no ambient global; components receive the selection and
// subscribe to changes through explicit callbacks.
package session

import (
	"context"
	"sync"
)

// ResourceKind names an asynchronous resource fetch.
type ResourceKind string

const (
	ResourceBooks    ResourceKind = "books"
	ResourcePartTree ResourceKind = "part_tree"
	ResourceProcess  ResourceKind = "process_poll"
	ResourceEntities ResourceKind = "entities"
)

type opKey struct {
	kind   ResourceKind
	bookID string
}

type operation struct {
	cancel context.CancelFunc
	gen    uint64
}

// Registry tracks cancellable in-flight operations keyed by
// (resourceType, bookID). Beginning an operation supersedes any
// previous one under the same key; a superseded operation's late result
// fails Commit and must be discarded so responses never mix across
// books.
type Registry struct {
	mu  sync.Mutex
	ops map[opKey]*operation
	gen uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[opKey]*operation)}
}

// Token identifies one begun operation.
type Token struct {
	key opKey
	gen uint64
	r   *Registry
}

// Begin registers an operation, cancelling any previous operation with
// the same key. The returned context is cancelled when the operation is
// superseded or its book's operations are cancelled wholesale.
func (r *Registry) Begin(ctx context.Context, kind ResourceKind, bookID string) (context.Context, Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := opKey{kind: kind, bookID: bookID}
	if prev, ok := r.ops[key]; ok {
		prev.cancel()
	}

	opCtx, cancel := context.WithCancel(ctx)
	r.gen++
	r.ops[key] = &operation{cancel: cancel, gen: r.gen}
	return opCtx, Token{key: key, gen: r.gen, r: r}
}

// Commit reports whether the operation is still current. A false return
// means the result arrived late (its book was deselected or the fetch
// was superseded) and must not be applied.
func (t Token) Commit() bool {
	if t.r == nil {
		return false
	}
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	op, ok := t.r.ops[t.key]
	if !ok || op.gen != t.gen {
		return false
	}
	delete(t.r.ops, t.key)
	op.cancel()
	return true
}

// CancelBook cancels every in-flight operation for a book. Called when
// the selection moves away from it.
func (r *Registry) CancelBook(bookID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, op := range r.ops {
		if key.bookID == bookID {
			op.cancel()
			delete(r.ops, key)
		}
	}
}

// CancelAll cancels everything. Called on view teardown so no orphaned
// pollers outlive the session.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, op := range r.ops {
		op.cancel()
		delete(r.ops, key)
	}
}

// InFlight returns the number of live operations.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}
