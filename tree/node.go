package tree

import (
	"fmt"
	"slices"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/reactive"
)

// Node is a live container: an array, object, map, set or model instance.
// Primitives are held directly as Go values.
//
// Reads through Node methods are reported to the arena's reactive runtime;
// writes go through the mutation methods, which keep parent links, caches
// and patch listeners up to date.
type Node struct {
	arena   *Arena
	id      NodeID
	kind    Kind
	atom    *reactive.Atom
	version uint64

	parent *Node
	key    ir.Key

	// keys holds object and map keys in insertion order. Model
	// properties follow the order of the model type instead.
	keys   []string
	fields map[string]any
	items  []any

	model   *ModelType
	modelID string

	interceptors reactive.Interceptors[*Change]
	listeners    []*patchListener
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) ID() NodeID { return n.id }

func (n *Node) Arena() *Arena { return n.arena }

// Version changes whenever n or one of its descendants is mutated.
func (n *Node) Version() uint64 { return n.version }

func (n *Node) Parent() *Node { return n.parent }

// ParentKey returns the key under which n is attached to its parent.
func (n *Node) ParentKey() (ir.Key, bool) {
	if n.parent == nil {
		return ir.Key{}, false
	}
	return n.key, true
}

func (n *Node) IsRoot() bool { return n.parent == nil }

func (n *Node) Root() *Node {
	x := n
	for x.parent != nil {
		x = x.parent
	}
	return x
}

// Path returns the path from n's root to n.
func (n *Node) Path() ir.Path {
	var res ir.Path
	for x := n; x.parent != nil; x = x.parent {
		res = append(res, x.key)
	}
	slices.Reverse(res)
	return res
}

// IsAncestorOf reports whether n is a strict ancestor of m.
func (n *Node) IsAncestorOf(m *Node) bool {
	for x := m.parent; x != nil; x = x.parent {
		if x == n {
			return true
		}
	}
	return false
}

// ModelType returns the model type of a model node, or nil.
func (n *Node) ModelType() *ModelType { return n.model }

// ModelID returns the id of a model node.
func (n *Node) ModelID() string { return n.modelID }

// Len returns the number of entries of n.
func (n *Node) Len() int {
	n.atom.ReportObserved()
	switch n.kind {
	case ArrayKind, SetKind:
		return len(n.items)
	case ModelKind:
		return len(n.model.Props)
	default:
		return len(n.keys)
	}
}

// Keys returns the keys of an object or map in insertion order, or the
// property names of a model.
func (n *Node) Keys() []string {
	n.atom.ReportObserved()
	switch n.kind {
	case ObjectKind, MapKind:
		return slices.Clone(n.keys)
	case ModelKind:
		res := make([]string, len(n.model.Props))
		for i := range n.model.Props {
			res[i] = n.model.Props[i].Name
		}
		return res
	}
	return nil
}

// Get returns the value under key of an object, map or model. The id
// property of a model reads as its id.
func (n *Node) Get(key string) any {
	n.atom.ReportObserved()
	if n.kind == ModelKind && key == n.model.IDProp {
		return n.modelID
	}
	return n.fields[key]
}

func (n *Node) Has(key string) bool {
	n.atom.ReportObserved()
	if n.kind == ModelKind && key == n.model.IDProp {
		return true
	}
	_, ok := n.fields[key]
	return ok
}

// At returns the item at index i of an array or set.
func (n *Node) At(i int) any {
	n.atom.ReportObserved()
	if i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Items returns a copy of the items of an array or set.
func (n *Node) Items() []any {
	n.atom.ReportObserved()
	return slices.Clone(n.items)
}

// Contains reports whether the set n holds v.
func (n *Node) Contains(v any) bool {
	n.atom.ReportObserved()
	return n.indexOf(v) != -1
}

func (n *Node) indexOf(v any) int {
	if p, ok := normalizePrimitive(v); ok {
		v = p
	}
	for i, x := range n.items {
		if sameValue(x, v) {
			return i
		}
	}
	return -1
}

// child returns the value under k.
func (n *Node) child(k ir.Key) (any, bool) {
	n.atom.ReportObserved()
	if k.IsIndex() {
		if n.kind != ArrayKind && n.kind != SetKind {
			return nil, false
		}
		if k.Index() < 0 || k.Index() >= len(n.items) {
			return nil, false
		}
		return n.items[k.Index()], true
	}
	switch n.kind {
	case ObjectKind, MapKind, ModelKind:
		if n.kind == ModelKind && k.Field() == n.model.IDProp {
			return n.modelID, true
		}
		v, ok := n.fields[k.Field()]
		return v, ok
	}
	return nil, false
}

// each calls f for every entry of n in snapshot order. It does not report
// observation.
func (n *Node) each(f func(k ir.Key, v any)) {
	switch n.kind {
	case ArrayKind, SetKind:
		for i, v := range n.items {
			f(ir.Index(i), v)
		}
	case ObjectKind, MapKind:
		for _, k := range n.keys {
			f(ir.Field(k), n.fields[k])
		}
	case ModelKind:
		for i := range n.model.Props {
			k := n.model.Props[i].Name
			f(ir.Field(k), n.fields[k])
		}
	}
}

// walk calls f on n and every node below it.
func (n *Node) walk(f func(*Node)) {
	f(n)
	n.each(func(_ ir.Key, v any) {
		if c, ok := v.(*Node); ok && c != nil {
			c.walk(f)
		}
	})
}

// Walk calls f on n and every node below it, parents first.
func (n *Node) Walk(f func(*Node)) {
	n.atom.ReportObserved()
	n.walk(f)
}

func (n *Node) String() string {
	name := n.kind.String()
	if n.model != nil {
		name = n.model.Name
	}
	return fmt.Sprintf("%s#%d@%s", name, n.id, n.Path())
}

func (n *Node) checkKind(ks ...Kind) error {
	if slices.Contains(ks, n.kind) {
		return nil
	}
	return fmt.Errorf("%w: %s is %s, want %v", ErrKind, n, n.kind, ks)
}
