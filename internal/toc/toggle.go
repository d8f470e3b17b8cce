package toc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/narrata/narrata/internal/types"
)

// ErrUnknownPart is returned when a toggle references a part id that is
// not in the current tree.
var ErrUnknownPart = errors.New("unknown book part")

// ToggleState is the per-node update lifecycle.
type ToggleState string

const (
	// ToggleIdle means no update is in flight for the node.
	ToggleIdle ToggleState = "idle"
	// TogglePending means an optimistic update awaits server confirmation.
	TogglePending ToggleState = "pending"
	// ToggleApplied means the last update was accepted by the server.
	ToggleApplied ToggleState = "applied"
	// ToggleRolledBack means the last update failed and the node's local
	// value was restored to its pre-attempt state.
	ToggleRolledBack ToggleState = "rolled_back"
)

// PartUpdater persists a part's classification with an explicit target
// value. Satisfied by api.Service.
type PartUpdater interface {
	UpdateBookPart(ctx context.Context, bookPartID string, isStoryPart bool) (types.BookPart, error)
}

// Toggler applies narrative-classification changes to tree nodes with
// optimistic local updates and server reconciliation. Updates on the
// same part id serialize: a second toggle waits for the first's
// resolution, so out-of-order completions cannot lose updates.
type Toggler struct {
	updater PartUpdater
	tree    *Tree
	cache   *SnippetCache
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	state map[string]ToggleState
	treeM sync.Mutex // guards tree mutations across different part ids
}

// NewToggler creates a toggler over the given tree. cache may be nil.
func NewToggler(updater PartUpdater, tree *Tree, cache *SnippetCache, logger *slog.Logger) *Toggler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toggler{
		updater: updater,
		tree:    tree,
		cache:   cache,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
		state:   make(map[string]ToggleState),
	}
}

// State returns the node's current update state.
func (tg *Toggler) State(id string) ToggleState {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if s, ok := tg.state[id]; ok {
		return s
	}
	return ToggleIdle
}

func (tg *Toggler) nodeLock(id string) *sync.Mutex {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	l, ok := tg.locks[id]
	if !ok {
		l = &sync.Mutex{}
		tg.locks[id] = l
	}
	return l
}

func (tg *Toggler) setState(id string, s ToggleState) {
	tg.mu.Lock()
	tg.state[id] = s
	tg.mu.Unlock()
}

// SetStoryPart sets a part's narrative classification to an explicit
// target value, persists it, and reconciles local state. On failure the
// node is rolled back to its pre-attempt value and the error returned;
// auth and not-found errors propagate unchanged for the caller to
// surface.
func (tg *Toggler) SetStoryPart(ctx context.Context, id string, isStoryPart bool) error {
	// Tree reads take treeM too: an unlocked existence check races with
	// the server-value write of an overlapping toggle on the same part.
	tg.treeM.Lock()
	_, ok := tg.tree.Part(id)
	tg.treeM.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPart, id)
	}

	// Serialize per part id: the second caller blocks here until the
	// first update resolves (success or failure).
	lock := tg.nodeLock(id)
	lock.Lock()
	defer lock.Unlock()

	tg.treeM.Lock()
	prev, _ := tg.tree.SetStoryPart(id, isStoryPart)
	tg.treeM.Unlock()
	tg.setState(id, TogglePending)

	tg.logger.Debug("classification update", "part_id", id, "target", isStoryPart, "previous", prev)

	updated, err := tg.updater.UpdateBookPart(ctx, id, isStoryPart)
	if err != nil {
		tg.treeM.Lock()
		tg.tree.SetStoryPart(id, prev)
		tg.treeM.Unlock()
		tg.setState(id, ToggleRolledBack)
		tg.logger.Warn("classification update rolled back", "part_id", id, "error", err)
		return fmt.Errorf("update part %s: %w", id, err)
	}

	// The server is authoritative for the persisted value.
	tg.treeM.Lock()
	tg.tree.SetStoryPart(id, updated.IsStoryPart)
	tg.treeM.Unlock()
	tg.setState(id, ToggleApplied)

	if tg.cache != nil {
		tg.cache.Invalidate(id)
	}
	return nil
}
