package tree

import (
	"fmt"
	"slices"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/libdiff"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/reactive"
)

type ChangeType int

const (
	// ChangeSet assigns a key of an object, map or model.
	ChangeSet ChangeType = iota + 1
	// ChangeDelete deletes a key of an object or map.
	ChangeDelete
	// ChangeUpdate assigns an existing array index.
	ChangeUpdate
	// ChangeSplice removes and inserts array items.
	ChangeSplice
	// ChangeAdd adds a set item.
	ChangeAdd
	// ChangeRemove removes a set item.
	ChangeRemove
)

// Change describes a mutation about to happen. Interceptors may rewrite
// NewValue, Added, Index and RemovedCount, or veto the change with an error.
type Change struct {
	Node         *Node
	Type         ChangeType
	Key          string
	Index        int
	RemovedCount int
	NewValue     any
	Added        []any
}

// Intercept registers fn to see every mutation of n before it happens.
// Interceptors run most recently registered first.
func (n *Node) Intercept(fn reactive.Interceptor[*Change]) (dispose func()) {
	return n.interceptors.Add(fn)
}

func (n *Node) intercept(c *Change) (*Change, error) {
	if n.interceptors.Len() == 0 {
		return c, nil
	}
	return n.interceptors.Run(c)
}

// Set assigns key of an object, map or model.
func (n *Node) Set(key string, v any) error {
	return n.setField(key, v, false)
}

// Delete removes key from an object or map and reports whether it was
// present.
func (n *Node) Delete(key string) (bool, error) {
	return n.deleteField(key)
}

func (n *Node) MapSet(key string, v any) error {
	if err := n.checkKind(MapKind); err != nil {
		return err
	}
	return n.setField(key, v, false)
}

func (n *Node) MapDelete(key string) (bool, error) {
	if err := n.checkKind(MapKind); err != nil {
		return false, err
	}
	return n.deleteField(key)
}

// MapClear deletes every key of a map, last key first.
func (n *Node) MapClear() error {
	if err := n.checkKind(MapKind); err != nil {
		return err
	}
	return n.arena.Batch(func() error {
		for i := len(n.keys) - 1; i >= 0; i-- {
			if _, err := n.deleteField(n.keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetAt assigns index i of an array. i may equal the length, which appends.
func (n *Node) SetAt(i int, v any) error {
	return n.setAt(i, v, false)
}

func (n *Node) Push(items ...any) error {
	if err := n.checkKind(ArrayKind); err != nil {
		return err
	}
	_, err := n.Splice(len(n.items), 0, items...)
	return err
}

// Pop removes and returns the last item of an array.
func (n *Node) Pop() (any, error) {
	if err := n.checkKind(ArrayKind); err != nil {
		return nil, err
	}
	if len(n.items) == 0 {
		return nil, nil
	}
	removed, err := n.Splice(len(n.items)-1, 1)
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return removed[0], nil
}

// Truncate shortens an array to l items.
func (n *Node) Truncate(l int) error {
	if err := n.checkKind(ArrayKind); err != nil {
		return err
	}
	if l >= len(n.items) {
		return nil
	}
	if l < 0 {
		return fmt.Errorf("%w: truncate to %d", ErrIndex, l)
	}
	_, err := n.Splice(l, len(n.items)-l)
	return err
}

// Add adds v to a set and reports whether it was not already present.
func (n *Node) Add(v any) (bool, error) {
	if err := n.checkKind(SetKind); err != nil {
		return false, err
	}
	c, err := n.intercept(&Change{Node: n, Type: ChangeAdd, Index: len(n.items), NewValue: v})
	if err != nil {
		return false, err
	}
	a := n.arena
	a.begin()
	defer a.end()
	v, err = a.prepare(c.NewValue, 0)
	if err != nil {
		return false, err
	}
	if n.indexOf(v) != -1 {
		return false, nil
	}
	v, err = a.attach(n, ir.Index(len(n.items)), v)
	if err != nil {
		return false, err
	}
	n.items = append(n.items, v)
	a.invalidate(n)
	n.emit(patch.Patch{Op: patch.Add, Path: ir.Path{ir.Index(len(n.items) - 1)}, Value: a.snap(v)})
	return true, nil
}

// Remove removes v from a set and reports whether it was present.
func (n *Node) Remove(v any) (bool, error) {
	if err := n.checkKind(SetKind); err != nil {
		return false, err
	}
	return n.remove(v)
}

// Clear removes every item of a set, last item first.
func (n *Node) Clear() error {
	if err := n.checkKind(SetKind); err != nil {
		return err
	}
	return n.arena.Batch(func() error {
		for len(n.items) > 0 {
			if _, err := n.remove(n.items[len(n.items)-1]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (n *Node) remove(v any) (bool, error) {
	if p, ok := normalizePrimitive(v); ok {
		v = p
	}
	i := n.indexOf(v)
	if i == -1 {
		return false, nil
	}
	if _, err := n.intercept(&Change{Node: n, Type: ChangeRemove, Index: i, NewValue: v}); err != nil {
		return false, err
	}
	a := n.arena
	a.begin()
	defer a.end()
	old := n.items[i]
	n.items = slices.Delete(n.items, i, i+1)
	n.rekey(i)
	a.detachChild(n, old)
	a.invalidate(n)
	n.emit(patch.Patch{Op: patch.Remove, Path: ir.Path{ir.Index(i)}, OldValue: a.snap(old)})
	return true, nil
}

// setField assigns key. detaching is set when the assignment nulls the old
// slot of a node being moved; it skips property validation.
func (n *Node) setField(key string, v any, detaching bool) error {
	if err := n.checkKind(ObjectKind, MapKind, ModelKind); err != nil {
		return err
	}
	var prop *Prop
	if n.kind == ModelKind {
		if key == n.model.IDProp {
			if s, ok := v.(string); ok && s == n.modelID {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrImmutableID, n)
		}
		prop = n.model.Prop(key)
		if prop == nil {
			return fmt.Errorf("%w: %s.%s", ErrUnknownProp, n.model.Name, key)
		}
	}
	c, err := n.intercept(&Change{Node: n, Type: ChangeSet, Key: key, NewValue: v})
	if err != nil {
		return err
	}
	a := n.arena
	a.begin()
	defer a.end()
	var hint Kind
	if prop != nil {
		hint = prop.Kind
	}
	v, err = a.prepare(c.NewValue, hint)
	if err != nil {
		return err
	}
	if prop != nil && !detaching {
		if err := a.validateProp(n.model, prop, v); err != nil {
			return err
		}
	}
	if old, had := n.fields[key]; had && sameValue(old, v) {
		return nil
	}
	var before *ir.Node
	if n.kind == ModelKind && len(n.model.ToSnapshot) != 0 {
		before = a.snap(n)
	}
	v, err = a.attach(n, ir.Field(key), v)
	if err != nil {
		return err
	}
	old, had := n.fields[key]
	if !had && n.kind != ModelKind {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
	a.detachChild(n, old)
	a.invalidate(n)
	p := patch.Patch{Op: patch.Replace, Path: ir.Path{ir.Field(key)}, Value: a.snap(v)}
	if had {
		p.OldValue = a.snap(old)
	} else {
		p.Op = patch.Add
	}
	if prop != nil {
		p.Value = prop.ToSnapshot.Out(p.Value)
		p.OldValue = prop.ToSnapshot.Out(p.OldValue)
	}
	if before != nil {
		// the model's own processors may move or drop the prop
		n.emit(libdiff.Diff(before, a.snap(n), libdiff.WithModelKeys(a.cfg.TypeKey, n.model.IDProp))...)
		return nil
	}
	n.emit(p)
	return nil
}

func (n *Node) deleteField(key string) (bool, error) {
	if err := n.checkKind(ObjectKind, MapKind); err != nil {
		return false, err
	}
	if _, ok := n.fields[key]; !ok {
		return false, nil
	}
	if _, err := n.intercept(&Change{Node: n, Type: ChangeDelete, Key: key}); err != nil {
		return false, err
	}
	a := n.arena
	a.begin()
	defer a.end()
	old := n.fields[key]
	delete(n.fields, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
	a.detachChild(n, old)
	a.invalidate(n)
	n.emit(patch.Patch{Op: patch.Remove, Path: ir.Path{ir.Field(key)}, OldValue: a.snap(old)})
	return true, nil
}

func (n *Node) setAt(i int, v any, detaching bool) error {
	if err := n.checkKind(ArrayKind); err != nil {
		return err
	}
	if i == len(n.items) && !detaching {
		return n.Push(v)
	}
	if i < 0 || i >= len(n.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndex, i, len(n.items))
	}
	c, err := n.intercept(&Change{Node: n, Type: ChangeUpdate, Index: i, NewValue: v})
	if err != nil {
		return err
	}
	a := n.arena
	a.begin()
	defer a.end()
	v, err = a.prepare(c.NewValue, 0)
	if err != nil {
		return err
	}
	if sameValue(n.items[i], v) {
		return nil
	}
	v, err = a.attach(n, ir.Index(i), v)
	if err != nil {
		return err
	}
	old := n.items[i]
	n.items[i] = v
	a.detachChild(n, old)
	a.invalidate(n)
	n.emit(patch.Patch{Op: patch.Replace, Path: ir.Path{ir.Index(i)}, Value: a.snap(v), OldValue: a.snap(old)})
	return nil
}

// Splice removes deleteCount items of an array at start, inserts items
// there and returns the removed items. Removed nodes are detached before
// the inserted items are attached, so an item may be moved within the
// array by removing and reinserting it.
func (n *Node) Splice(start, deleteCount int, items ...any) ([]any, error) {
	if err := n.checkKind(ArrayKind); err != nil {
		return nil, err
	}
	c, err := n.intercept(&Change{Node: n, Type: ChangeSplice, Index: start, RemovedCount: deleteCount, Added: items})
	if err != nil {
		return nil, err
	}
	start, deleteCount, items = c.Index, c.RemovedCount, c.Added
	l := len(n.items)
	if start < 0 || start > l {
		return nil, fmt.Errorf("%w: splice at %d (len %d)", ErrIndex, start, l)
	}
	deleteCount = max(0, min(deleteCount, l-start))
	if deleteCount == 0 && len(items) == 0 {
		return nil, nil
	}
	a := n.arena
	a.begin()
	defer a.end()
	added := make([]any, len(items))
	for i, item := range items {
		v, err := a.prepare(item, 0)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", start+i, err)
		}
		if err := checkAttach(n, v); err != nil {
			return nil, err
		}
		if vn, ok := v.(*Node); ok && vn != nil && slices.Contains(added[:i], v) &&
			!(vn.kind == ModelKind && vn.model.ValueType) {
			return nil, fmt.Errorf("%w: %s inserted twice", ErrUnsupportedValue, vn)
		}
		added[i] = v
	}
	removed := slices.Clone(n.items[start : start+deleteCount])
	// Inserted items may come from below removed ones, whose snapshots
	// change when the item is moved out.
	removedSnaps := make([]*ir.Node, len(removed))
	for i, r := range removed {
		removedSnaps[i] = a.snap(r)
	}
	for _, r := range removed {
		if rn, ok := r.(*Node); ok && rn != nil && rn.parent == n {
			rn.parent = nil
		}
	}
	for i := range added {
		v, err := a.attach(n, ir.Index(start+i), added[i])
		if err != nil {
			n.unsplice(start, removed, added[:i])
			return nil, err
		}
		added[i] = v
	}
	res := make([]any, 0, l-deleteCount+len(added))
	res = append(res, n.items[:start]...)
	res = append(res, added...)
	n.items = append(res, n.items[start+deleteCount:]...)
	n.rekey(start)
	for _, r := range removed {
		if rn, ok := r.(*Node); ok && rn != nil && rn.parent == nil {
			rn.key = ir.Key{}
			a.noteDetached(rn)
		}
	}
	a.invalidate(n)
	n.emit(a.splicePatches(start, removedSnaps, added)...)
	return removed, nil
}

// unsplice restores parent links after a splice failed attaching an item.
// attached holds the items attached before the failure; moves out of other
// containers have already happened and are not undone.
func (n *Node) unsplice(start int, removed, attached []any) {
	for _, v := range attached {
		c, ok := v.(*Node)
		if !ok || c == nil || c.parent != n || slices.Contains(removed, v) {
			continue
		}
		c.parent = nil
		c.key = ir.Key{}
		n.arena.noteDetached(c)
	}
	for i, r := range removed {
		if rn, ok := r.(*Node); ok && rn != nil && (rn.parent == nil || rn.parent == n) {
			rn.parent = n
			rn.key = ir.Index(start + i)
		}
	}
}

// splicePatches describes a splice as replacements of the overlapping
// range, then removals or additions of the rest.
func (a *Arena) splicePatches(start int, removed []*ir.Node, added []any) []patch.Patch {
	common := min(len(removed), len(added))
	var ps []patch.Patch
	for i := range common {
		ps = append(ps, patch.Patch{
			Op:       patch.Replace,
			Path:     ir.Path{ir.Index(start + i)},
			Value:    a.snap(added[i]),
			OldValue: removed[i],
		})
	}
	for i := common; i < len(removed); i++ {
		ps = append(ps, patch.Patch{
			Op:       patch.Remove,
			Path:     ir.Path{ir.Index(start + common)},
			OldValue: removed[i],
		})
	}
	for i := common; i < len(added); i++ {
		ps = append(ps, patch.Patch{
			Op:    patch.Add,
			Path:  ir.Path{ir.Index(start + i)},
			Value: a.snap(added[i]),
		})
	}
	return ps
}

// rekey updates the parent keys of nodes in n.items from index i on.
func (n *Node) rekey(i int) {
	for j := i; j < len(n.items); j++ {
		if c, ok := n.items[j].(*Node); ok && c != nil && c.parent == n {
			c.key = ir.Index(j)
		}
	}
}

func (n *Node) emit(ps ...patch.Patch) {
	if len(ps) == 0 {
		return
	}
	if debug.Patch() {
		for _, p := range ps {
			debug.Logf("patch %s: %s", n, p)
		}
	}
	n.arena.emit(n, ps)
}
