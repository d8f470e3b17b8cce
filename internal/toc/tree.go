// Package toc builds and maintains the navigable part tree for a book.
//
// The tree is an arena of nodes keyed by part id with explicit
// parent/child index references rather than nested owned structures, so
// integrity checks are a single pass over the arena and traversal never
// recurses. Book hierarchies can nest arbitrarily deep.
package toc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/narrata/narrata/internal/types"
)

// MalformedHierarchyError reports structural invariant violations in a
// flat part set. These should never occur with well-formed server data
// but must be detected rather than silently dropping a subtree from
// extraction-eligibility review.
type MalformedHierarchyError struct {
	Roots       []string // ids with a nil parent; invalid unless exactly one
	Orphans     []string // ids whose parent is not in the set
	Duplicates  []string // ids that appear more than once
	Unreachable []string // ids not reachable from the root (parent cycle)
}

func (e *MalformedHierarchyError) Error() string {
	var b strings.Builder
	b.WriteString("malformed hierarchy:")
	if len(e.Roots) != 1 {
		fmt.Fprintf(&b, " %d roots", len(e.Roots))
	}
	if len(e.Orphans) > 0 {
		fmt.Fprintf(&b, " orphans=%v", e.Orphans)
	}
	if len(e.Duplicates) > 0 {
		fmt.Fprintf(&b, " duplicates=%v", e.Duplicates)
	}
	if len(e.Unreachable) > 0 {
		fmt.Fprintf(&b, " unreachable=%v", e.Unreachable)
	}
	return b.String()
}

func (e *MalformedHierarchyError) isMalformed() bool {
	return len(e.Roots) != 1 || len(e.Orphans) > 0 || len(e.Duplicates) > 0 || len(e.Unreachable) > 0
}

// node is one arena entry.
type node struct {
	part     types.BookPart
	parent   int   // arena index, -1 for the root
	children []int // arena indices, ordered by sibling index
	rank     int   // pre-order position, assigned at build time
}

// Tree is the rooted ordered part tree for one book.
type Tree struct {
	nodes []node
	index map[string]int // part id -> arena index
	root  int
}

// Build constructs a tree from a flat part set. Input order is
// irrelevant: output order is fully determined by sibling indices.
// Returns *MalformedHierarchyError if the set is not exactly one tree.
func Build(parts []types.BookPart) (*Tree, error) {
	t := &Tree{
		nodes: make([]node, 0, len(parts)),
		index: make(map[string]int, len(parts)),
		root:  -1,
	}
	malformed := &MalformedHierarchyError{}

	for _, p := range parts {
		if _, ok := t.index[p.ID]; ok {
			malformed.Duplicates = append(malformed.Duplicates, p.ID)
			continue
		}
		t.index[p.ID] = len(t.nodes)
		t.nodes = append(t.nodes, node{part: p, parent: -1})
	}

	for i := range t.nodes {
		p := t.nodes[i].part
		if p.ParentID == nil {
			malformed.Roots = append(malformed.Roots, p.ID)
			t.root = i
			continue
		}
		parentIdx, ok := t.index[*p.ParentID]
		if !ok {
			malformed.Orphans = append(malformed.Orphans, p.ID)
			continue
		}
		t.nodes[i].parent = parentIdx
		t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, i)
	}

	for i := range t.nodes {
		children := t.nodes[i].children
		sort.Slice(children, func(a, b int) bool {
			return t.nodes[children[a]].part.SiblingIndex < t.nodes[children[b]].part.SiblingIndex
		})
	}

	// Reachability from the root catches parent cycles: a cycle's members
	// all have present parents but none is reachable from the root.
	if len(malformed.Roots) == 1 {
		seen := t.assignRanks()
		if seen != len(t.nodes) {
			for i := range t.nodes {
				if t.nodes[i].rank < 0 {
					malformed.Unreachable = append(malformed.Unreachable, t.nodes[i].part.ID)
				}
			}
			sort.Strings(malformed.Unreachable)
		}
	}

	if malformed.isMalformed() {
		return nil, malformed
	}
	return t, nil
}

// assignRanks walks pre-order from the root with an explicit stack,
// assigning each reachable node its pre-order position. Returns the
// number of reachable nodes.
func (t *Tree) assignRanks() int {
	for i := range t.nodes {
		t.nodes[i].rank = -1
	}
	seen := 0
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t.nodes[idx].rank >= 0 {
			continue
		}
		t.nodes[idx].rank = seen
		seen++
		children := t.nodes[idx].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return seen
}

// Len returns the number of parts in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root part.
func (t *Tree) Root() types.BookPart {
	return t.nodes[t.root].part
}

// Part returns the part with the given id.
func (t *Tree) Part(id string) (types.BookPart, bool) {
	idx, ok := t.index[id]
	if !ok {
		return types.BookPart{}, false
	}
	return t.nodes[idx].part, true
}

// Children returns the ordered children of the given part.
func (t *Tree) Children(id string) []types.BookPart {
	idx, ok := t.index[id]
	if !ok {
		return nil
	}
	children := make([]types.BookPart, len(t.nodes[idx].children))
	for i, c := range t.nodes[idx].children {
		children[i] = t.nodes[c].part
	}
	return children
}

// Depth returns the number of ancestors of the given part, or -1 if the
// id is unknown. The root has depth 0.
func (t *Tree) Depth(id string) int {
	idx, ok := t.index[id]
	if !ok {
		return -1
	}
	depth := 0
	for t.nodes[idx].parent >= 0 {
		idx = t.nodes[idx].parent
		depth++
	}
	return depth
}

// PreorderRank returns the part's pre-order position, or -1 if unknown.
func (t *Tree) PreorderRank(id string) int {
	idx, ok := t.index[id]
	if !ok {
		return -1
	}
	return t.nodes[idx].rank
}

// Walk visits every part in pre-order, children in sibling order,
// calling fn with the part and its depth. Returning false stops the
// walk. Iterative: depth is unbounded.
func (t *Tree) Walk(fn func(part types.BookPart, depth int) bool) {
	type frame struct {
		idx   int
		depth int
	}
	stack := []frame{{t.root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(t.nodes[f.idx].part, f.depth) {
			return
		}
		children := t.nodes[f.idx].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{children[i], f.depth + 1})
		}
	}
}

// Flatten returns all parts in pre-order. Rebuilding a tree from the
// result reproduces this tree exactly.
func (t *Tree) Flatten() []types.BookPart {
	flat := make([]types.BookPart, 0, len(t.nodes))
	t.Walk(func(part types.BookPart, depth int) bool {
		flat = append(flat, part)
		return true
	})
	return flat
}

// SetStoryPart updates a part's narrative classification in place,
// returning the previous value. Used by the toggler; callers go through
// Toggler.SetStoryPart so updates serialize and persist.
func (t *Tree) SetStoryPart(id string, isStoryPart bool) (prev bool, ok bool) {
	idx, found := t.index[id]
	if !found {
		return false, false
	}
	prev = t.nodes[idx].part.IsStoryPart
	t.nodes[idx].part.IsStoryPart = isStoryPart
	return prev, true
}
