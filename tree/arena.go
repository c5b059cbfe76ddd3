package tree

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/reactive"
)

// NodeID identifies a node within its arena. Ids are assigned at creation
// and never reused.
type NodeID uint64

// entry is the per node state kept outside the node: the cached snapshot and
// memoized derived values.
type entry struct {
	snap    *ir.Node
	snapVer uint64
	memo    map[any]any
}

// Arena owns nodes, their cached derived state and the reactive runtime they
// report to. An Arena and its nodes are not safe for concurrent use.
type Arena struct {
	cfg     Config
	rt      *reactive.Runtime
	nextID  NodeID
	entries map[NodeID]*entry

	depth    int
	detached []*Node

	// dead ids are queued from GC cleanups, which run on their own
	// goroutine.
	mu   sync.Mutex
	dead []NodeID
}

func NewArena(opts ...Option) *Arena {
	return &Arena{
		cfg:     newConfig(opts),
		rt:      reactive.NewRuntime(),
		entries: map[NodeID]*entry{},
	}
}

func (a *Arena) Config() Config { return a.cfg }

func (a *Arena) Registry() *Registry { return a.cfg.Registry }

func (a *Arena) Runtime() *reactive.Runtime { return a.rt }

func (a *Arena) TypeKey() string { return a.cfg.TypeKey }

// InBatch reports whether a turn is open.
func (a *Arena) InBatch() bool { return a.depth > 0 }

func (a *Arena) newNode(kind Kind) *Node {
	a.nextID++
	n := &Node{
		arena:   a,
		id:      a.nextID,
		kind:    kind,
		version: 1,
		atom:    a.rt.NewAtom(kind.String()),
	}
	switch kind {
	case ObjectKind, MapKind, ModelKind:
		n.fields = map[string]any{}
	}
	runtime.AddCleanup(n, a.collected, n.id)
	return n
}

func (a *Arena) collected(id NodeID) {
	a.mu.Lock()
	a.dead = append(a.dead, id)
	a.mu.Unlock()
}

// Collect drops the entries of nodes that have been garbage collected.
// It is also done at the end of every turn.
func (a *Arena) Collect() {
	a.mu.Lock()
	dead := a.dead
	a.dead = nil
	a.mu.Unlock()
	for _, id := range dead {
		delete(a.entries, id)
	}
}

// Entries returns the number of nodes with cached state.
func (a *Arena) Entries() int {
	return len(a.entries)
}

func (a *Arena) entry(n *Node) *entry {
	e := a.entries[n.id]
	if e == nil {
		e = &entry{}
		a.entries[n.id] = e
	}
	return e
}

// Memo returns the value memoized for (n, key), if it is still valid. Memo
// tables are cleared whenever n or one of its descendants changes.
func (a *Arena) Memo(n *Node, key any) (any, bool) {
	e := a.entries[n.id]
	if e == nil || e.memo == nil {
		return nil, false
	}
	v, ok := e.memo[key]
	return v, ok
}

func (a *Arena) SetMemo(n *Node, key, v any) {
	e := a.entry(n)
	if e.memo == nil {
		e.memo = map[any]any{}
	}
	e.memo[key] = v
}

// Batch runs fn as a single turn: reactions run and detached nodes are
// released once, after the outermost Batch returns.
func (a *Arena) Batch(fn func() error) error {
	a.begin()
	defer a.end()
	return fn()
}

func (a *Arena) begin() {
	a.depth++
	a.rt.StartBatch()
}

func (a *Arena) end() {
	a.depth--
	if a.depth == 0 {
		a.finishTurn()
	}
	a.rt.EndBatch()
}

func (a *Arena) finishTurn() {
	detached := a.detached
	a.detached = nil
	for i, n := range detached {
		if n.parent == nil && !slices.Contains(detached[:i], n) {
			a.release(n)
		}
	}
	a.Collect()
}

func (a *Arena) noteDetached(n *Node) {
	a.detached = append(a.detached, n)
}

// release drops the memo tables of a detached subtree. Cached snapshots
// are kept: detaching does not change a node's content, and entries of
// unreachable nodes are dropped by Collect.
func (a *Arena) release(n *Node) {
	n.walk(func(x *Node) {
		e, ok := a.entries[x.id]
		if !ok {
			return
		}
		e.memo = nil
		if h := a.cfg.Hooks.OnRelease; h != nil {
			h(x)
		}
	})
	if debug.Tweak() {
		debug.Logf("release %s", n)
	}
}

// invalidate marks n and all its ancestors changed.
func (a *Arena) invalidate(n *Node) {
	for x := n; x != nil; x = x.parent {
		x.version++
		if e := a.entries[x.id]; e != nil {
			e.snap = nil
			clear(e.memo)
		}
		x.atom.ReportChanged()
		if h := a.cfg.Hooks.OnInvalidate; h != nil {
			h(x)
		}
	}
}

// Resolve returns the value at path below root.
func (a *Arena) Resolve(root *Node, path ir.Path) (any, error) {
	var cur any = root
	for i, k := range path {
		n, ok := cur.(*Node)
		if !ok || n == nil {
			return nil, fmt.Errorf("%w: primitive at %s", ir.ErrNotFound, path[:i])
		}
		v, ok := n.child(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ir.ErrNotFound, path[:i+1])
		}
		cur = v
	}
	return cur, nil
}
