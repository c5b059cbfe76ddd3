package reconcile

import (
	"fmt"
	"slices"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
)

func nodeOfKind(v any, k tree.Kind) (*tree.Node, bool) {
	n, ok := v.(*tree.Node)
	if !ok || n == nil || n.Kind() != k {
		return nil, false
	}
	return n, true
}

func reconcileModel(e *Engine, c *Call) (any, bool, error) {
	a := e.arena
	name := ir.Get(c.Snapshot, a.TypeKey()).String
	mt := a.Registry().Lookup(name)
	if mt == nil {
		return nil, true, fmt.Errorf("%w: %q", tree.ErrUnknownModel, name)
	}
	sn := mt.FromSnapshot.In(c.Snapshot)
	var (
		target  *tree.Node
		outcome = Merged
	)
	if idn := ir.Get(sn, mt.IDProp); idn != nil && idn.Type == ir.StringType {
		if cur, ok := nodeOfKind(c.Current, tree.ModelKind); ok && cur.ModelType() == mt && cur.ModelID() == idn.String {
			target = cur
		} else if c.Pool != nil {
			target = c.Pool.FindByTypeAndID(name, idn.String)
			outcome = Pooled
		}
	}
	if target == nil {
		v, err := a.FromSnapshot(c.Snapshot)
		if err != nil {
			return nil, true, err
		}
		if c.Pool != nil {
			c.Pool.Add(v.(*tree.Node))
		}
		e.Report(ModelSnapshot, Created)
		return v, true, nil
	}
	for i := range mt.Props {
		p := &mt.Props[i]
		psn := ir.Get(sn, p.Name)
		if psn == nil {
			continue
		}
		v, err := e.child(target.Get(p.Name), p.FromSnapshot.In(psn), c, target, p.Kind)
		if err != nil {
			return nil, true, fmt.Errorf("%s.%s: %w", name, p.Name, err)
		}
		if err := target.Set(p.Name, v); err != nil {
			return nil, true, err
		}
	}
	e.Report(ModelSnapshot, outcome)
	return target, true, nil
}

// reconcileArray aligns items by index: excess items are truncated, each
// remaining slot is reconciled and extra snapshot items are appended.
func reconcileArray(e *Engine, c *Call) (any, bool, error) {
	if c.Hint == tree.SetKind {
		return nil, false, nil
	}
	if _, isSet := nodeOfKind(c.Current, tree.SetKind); isSet {
		return nil, false, nil
	}
	n, ok := nodeOfKind(c.Current, tree.ArrayKind)
	outcome := Merged
	if !ok {
		var err error
		if n, err = e.arena.NewArray(); err != nil {
			return nil, true, err
		}
		outcome = Created
	}
	vals := c.Snapshot.Values
	if err := n.Truncate(len(vals)); err != nil {
		return nil, true, err
	}
	for i, sv := range vals {
		if i < n.Len() {
			v, err := e.child(n.At(i), sv, c, n, 0)
			if err != nil {
				return nil, true, fmt.Errorf("[%d]: %w", i, err)
			}
			if err := n.SetAt(i, v); err != nil {
				return nil, true, err
			}
			continue
		}
		v, err := e.child(nil, sv, c, n, 0)
		if err != nil {
			return nil, true, fmt.Errorf("[%d]: %w", i, err)
		}
		if err := n.Push(v); err != nil {
			return nil, true, err
		}
	}
	e.Report(ArraySnapshot, outcome)
	return n, true, nil
}

func reconcileMap(e *Engine, c *Call) (any, bool, error) {
	n, ok := nodeOfKind(c.Current, tree.MapKind)
	if !ok && c.Hint != tree.MapKind {
		return nil, false, nil
	}
	return reconcileKeyed(e, c, n, tree.MapKind)
}

func reconcileObject(e *Engine, c *Call) (any, bool, error) {
	n, _ := nodeOfKind(c.Current, tree.ObjectKind)
	return reconcileKeyed(e, c, n, tree.ObjectKind)
}

// reconcileKeyed deletes keys absent from the snapshot and reconciles the
// others. A nil n builds a new node of kind.
func reconcileKeyed(e *Engine, c *Call, n *tree.Node, kind tree.Kind) (any, bool, error) {
	outcome := Merged
	if n == nil {
		var err error
		if kind == tree.MapKind {
			n, err = e.arena.NewMap()
		} else {
			n, err = e.arena.NewObject()
		}
		if err != nil {
			return nil, true, err
		}
		outcome = Created
	}
	sn := c.Snapshot
	for _, k := range n.Keys() {
		if sn.FieldIndex(k) == -1 {
			if _, err := n.Delete(k); err != nil {
				return nil, true, err
			}
		}
	}
	for i, f := range sn.Fields {
		v, err := e.child(n.Get(f), sn.Values[i], c, n, 0)
		if err != nil {
			return nil, true, fmt.Errorf("%s: %w", f, err)
		}
		if err := n.Set(f, v); err != nil {
			return nil, true, err
		}
	}
	e.Report(InspectSnapshot(sn, e.arena.TypeKey()), outcome)
	return n, true, nil
}

// reconcileSet keeps members present in the snapshot and adds the missing
// ones. When the surviving members are out of snapshot order the set is
// rebuilt.
func reconcileSet(e *Engine, c *Call) (any, bool, error) {
	n, ok := nodeOfKind(c.Current, tree.SetKind)
	if !ok && c.Hint != tree.SetKind {
		return nil, false, nil
	}
	outcome := Merged
	if !ok {
		var err error
		if n, err = e.arena.NewSet(); err != nil {
			return nil, true, err
		}
		outcome = Created
	}
	members := n.Items()
	targets := make([]any, 0, len(c.Snapshot.Values))
	for i, sv := range c.Snapshot.Values {
		// plain containers have no identity of their own; keep an equal member
		if j := equalMember(members, sv, e.arena.TypeKey()); j != -1 {
			targets = append(targets, members[j])
			members = slices.Delete(members, j, j+1)
			continue
		}
		v, err := e.child(nil, sv, c, n, 0)
		if err != nil {
			return nil, true, fmt.Errorf("[%d]: %w", i, err)
		}
		targets = append(targets, v)
	}
	for _, item := range n.Items() {
		if !slices.ContainsFunc(targets, func(t any) bool { return sameMember(t, item) }) {
			if _, err := n.Remove(item); err != nil {
				return nil, true, err
			}
		}
	}
	items := n.Items()
	inOrder := len(items) <= len(targets)
	for i := 0; inOrder && i < len(items); i++ {
		inOrder = sameMember(items[i], targets[i])
	}
	if !inOrder {
		if err := n.Clear(); err != nil {
			return nil, true, err
		}
	}
	for _, t := range targets {
		if _, err := n.Add(t); err != nil {
			return nil, true, err
		}
	}
	e.Report(ArraySnapshot, outcome)
	return n, true, nil
}

func equalMember(members []any, sv *ir.Node, typeKey string) int {
	if sv.Type.IsLeaf() || InspectSnapshot(sv, typeKey) == ModelSnapshot {
		return -1
	}
	return slices.IndexFunc(members, func(m any) bool {
		return tree.IsNode(m) && ir.Equal(tree.GetSnapshot(m), sv)
	})
}

func sameMember(a, b any) bool {
	if tree.IsNode(a) || tree.IsNode(b) {
		return a == b
	}
	return ir.Equal(tree.GetSnapshot(a), tree.GetSnapshot(b))
}
