package reconcile

import (
	"fmt"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/modelpool"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/tree"
)

// ApplyPatches applies ps to the live tree rooted at root, in one turn.
// Added and replacing values are reconciled against the values they
// replace and the models the tree held before the first patch, so
// identities survive moves expressed as a remove followed by an add.
func (e *Engine) ApplyPatches(root *tree.Node, ps ...patch.Patch) error {
	pool := modelpool.New(root)
	pool.Prime()
	return e.arena.Batch(func() error {
		for i := range ps {
			if err := e.applyPatch(root, &ps[i], pool); err != nil {
				return fmt.Errorf("patch %d (%s %s): %w", i, ps[i].Op, ps[i].Path, err)
			}
		}
		return nil
	})
}

func (e *Engine) applyPatch(root *tree.Node, p *patch.Patch, pool *modelpool.Pool) error {
	if debug.Reconcile() {
		debug.Logf("apply %s", p)
	}
	value := p.Value
	if value == nil {
		value = ir.Null()
	}
	if len(p.Path) == 0 {
		if p.Op == patch.Remove {
			return fmt.Errorf("%w: remove of root", ErrBadPatch)
		}
		return e.applySnapshot(root, value, pool)
	}
	pv, err := e.arena.Resolve(root, p.Path[:len(p.Path)-1])
	if err != nil {
		return err
	}
	parent, ok := pv.(*tree.Node)
	if !ok || parent == nil {
		return fmt.Errorf("%w: parent of %s is not a container", ErrBadPatch, p.Path)
	}
	k := p.Path[len(p.Path)-1]
	c := &Call{Pool: pool, Parent: parent}
	switch parent.Kind() {
	case tree.ArrayKind:
		if !k.IsIndex() {
			return fmt.Errorf("%w: field key %q in array", ErrBadPatch, k.Field())
		}
		return e.patchArray(parent, k.Index(), p.Op, value, c)
	case tree.SetKind:
		if !k.IsIndex() {
			return fmt.Errorf("%w: field key %q in set", ErrBadPatch, k.Field())
		}
		return e.patchSet(parent, k.Index(), p.Op, value, c)
	default:
		if k.IsIndex() {
			return fmt.Errorf("%w: index key %d in %s", ErrBadPatch, k.Index(), parent.Kind())
		}
		return e.patchKeyed(parent, k.Field(), p.Op, value, c)
	}
}

func (e *Engine) patchArray(n *tree.Node, i int, op patch.Op, value *ir.Node, c *Call) error {
	switch op {
	case patch.Add:
		v, err := e.child(nil, value, c, n, 0)
		if err != nil {
			return err
		}
		_, err = n.Splice(i, 0, v)
		return err
	case patch.Replace:
		if i < 0 || i >= n.Len() {
			return fmt.Errorf("%w: replace at %d (len %d)", ErrBadPatch, i, n.Len())
		}
		v, err := e.child(n.At(i), value, c, n, 0)
		if err != nil {
			return err
		}
		return n.SetAt(i, v)
	case patch.Remove:
		if i < 0 || i >= n.Len() {
			return fmt.Errorf("%w: remove at %d (len %d)", ErrBadPatch, i, n.Len())
		}
		_, err := n.Splice(i, 1)
		return err
	}
	return fmt.Errorf("%w: op %q", ErrBadPatch, op)
}

func (e *Engine) patchSet(n *tree.Node, i int, op patch.Op, value *ir.Node, c *Call) error {
	if op == patch.Replace || op == patch.Remove {
		if i < 0 || i >= n.Len() {
			return fmt.Errorf("%w: %s at %d (len %d)", ErrBadPatch, op, i, n.Len())
		}
		if _, err := n.Remove(n.At(i)); err != nil {
			return err
		}
	}
	if op == patch.Add || op == patch.Replace {
		v, err := e.child(nil, value, c, n, 0)
		if err != nil {
			return err
		}
		_, err = n.Add(v)
		return err
	}
	return nil
}

func (e *Engine) patchKeyed(n *tree.Node, key string, op patch.Op, value *ir.Node, c *Call) error {
	switch op {
	case patch.Add, patch.Replace:
		var hint tree.Kind
		if mt := n.ModelType(); mt != nil {
			if p := mt.Prop(key); p != nil {
				hint = p.Kind
				value = p.FromSnapshot.In(value)
			}
		}
		v, err := e.child(n.Get(key), value, c, n, hint)
		if err != nil {
			return err
		}
		return n.Set(key, v)
	case patch.Remove:
		ok, err := n.Delete(key)
		if err == nil && !ok {
			err = fmt.Errorf("%w: remove missing key %q", ErrBadPatch, key)
		}
		return err
	}
	return fmt.Errorf("%w: op %q", ErrBadPatch, op)
}
