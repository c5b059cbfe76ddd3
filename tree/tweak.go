package tree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
)

// KV is an object or map entry.
type KV struct {
	Key   string
	Value any
}

func (a *Arena) NewObject(kvs ...KV) (*Node, error) {
	return a.newKeyed(ObjectKind, kvs)
}

func (a *Arena) NewMap(kvs ...KV) (*Node, error) {
	return a.newKeyed(MapKind, kvs)
}

func (a *Arena) NewArray(items ...any) (*Node, error) {
	return a.newList(ArrayKind, items)
}

// NewSet creates a set. Duplicate items are dropped.
func (a *Arena) NewSet(items ...any) (*Node, error) {
	return a.newList(SetKind, items)
}

// Tweak turns a raw value into a live one. Go maps become objects with
// sorted keys, slices become arrays and snapshots are instantiated. Nodes
// and primitives are returned as they are.
func (a *Arena) Tweak(raw any) (any, error) {
	a.begin()
	defer a.end()
	return a.prepare(raw, 0)
}

func (a *Arena) newKeyed(kind Kind, kvs []KV) (*Node, error) {
	a.begin()
	defer a.end()
	n := a.newNode(kind)
	for _, kv := range kvs {
		v, err := a.prepare(kv.Value, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kv.Key, err)
		}
		v, err = a.attach(n, ir.Field(kv.Key), v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kv.Key, err)
		}
		if old, ok := n.fields[kv.Key]; ok {
			a.detachChild(n, old)
		} else {
			n.keys = append(n.keys, kv.Key)
		}
		n.fields[kv.Key] = v
	}
	return n, nil
}

func (a *Arena) newList(kind Kind, items []any) (*Node, error) {
	a.begin()
	defer a.end()
	n := a.newNode(kind)
	for i, item := range items {
		v, err := a.prepare(item, 0)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if kind == SetKind && n.indexOf(v) != -1 {
			continue
		}
		v, err = a.attach(n, ir.Index(len(n.items)), v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		n.items = append(n.items, v)
	}
	return n, nil
}

// prepare turns v into a live value. hint selects MapKind or SetKind for
// raw maps, slices and snapshots.
func (a *Arena) prepare(v any, hint Kind) (any, error) {
	if p, ok := normalizePrimitive(v); ok {
		return p, nil
	}
	switch x := v.(type) {
	case *Node:
		if x == nil {
			return nil, nil
		}
		if x.arena != a {
			return nil, fmt.Errorf("%w: %s", ErrForeignArena, x)
		}
		return x, nil
	case *ir.Node:
		if x == nil {
			return nil, nil
		}
		return a.fromSnapshot(x, hint, false)
	case []KV:
		return a.newKeyed(keyedKind(hint), x)
	case map[string]any:
		kvs := make([]KV, 0, len(x))
		for _, k := range slices.Sorted(maps.Keys(x)) {
			kvs = append(kvs, KV{Key: k, Value: x[k]})
		}
		return a.newKeyed(keyedKind(hint), kvs)
	case []any:
		return a.newList(listKind(hint), x)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func keyedKind(hint Kind) Kind {
	if hint == MapKind {
		return MapKind
	}
	return ObjectKind
}

func listKind(hint Kind) Kind {
	if hint == SetKind {
		return SetKind
	}
	return ArrayKind
}

// checkAttach reports whether v may be attached below parent.
func checkAttach(parent *Node, v any) error {
	c, ok := v.(*Node)
	if !ok || c == nil {
		return nil
	}
	if c == parent || c.IsAncestorOf(parent) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, c, parent)
	}
	return nil
}

// attach makes v a child of parent under k and returns the value that was
// attached. A node which already has a parent is first detached from it by
// nulling (or, in a set, removing) its old slot; value type models are
// cloned instead.
func (a *Arena) attach(parent *Node, k ir.Key, v any) (any, error) {
	c, ok := v.(*Node)
	if !ok || c == nil {
		return v, nil
	}
	if err := checkAttach(parent, c); err != nil {
		return nil, err
	}
	if c.parent != nil {
		if c.kind == ModelKind && c.model.ValueType {
			c = a.cloneNode(c)
		} else if err := a.detachForMove(c); err != nil {
			return nil, err
		}
	}
	c.parent = parent
	c.key = k
	if debug.Tweak() {
		debug.Logf("attach %s", c)
	}
	return c, nil
}

func (a *Arena) detachForMove(c *Node) error {
	p, k := c.parent, c.key
	if debug.Tweak() {
		debug.Logf("detach %s for move", c)
	}
	switch p.kind {
	case ArrayKind:
		return p.setAt(k.Index(), nil, true)
	case SetKind:
		_, err := p.remove(c)
		return err
	default:
		return p.setField(k.Field(), nil, true)
	}
}

// detachChild unlinks old from parent if it is still attached there.
func (a *Arena) detachChild(parent *Node, old any) {
	c, ok := old.(*Node)
	if !ok || c == nil || c.parent != parent {
		return
	}
	c.parent = nil
	c.key = ir.Key{}
	a.noteDetached(c)
}

// Clone returns a deep copy of n with fresh model ids. The copy is a new
// root in a.
func (a *Arena) Clone(n *Node) *Node {
	return a.cloneNode(n)
}

func (a *Arena) cloneNode(n *Node) *Node {
	c := a.newNode(n.kind)
	c.model = n.model
	if n.kind == ModelKind {
		c.modelID = a.cfg.IDGenerator()
	}
	c.keys = slices.Clone(n.keys)
	n.each(func(k ir.Key, v any) {
		if cn, ok := v.(*Node); ok && cn != nil {
			cc := a.cloneNode(cn)
			cc.parent = c
			cc.key = k
			v = cc
		}
		if k.IsIndex() {
			c.items = append(c.items, v)
		} else {
			c.fields[k.Field()] = v
		}
	})
	return c
}
