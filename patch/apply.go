package patch

import (
	"fmt"

	"github.com/signadot/treestate/ir"
)

// Apply applies ps to doc in order and returns the result. doc is not
// modified; untouched subtrees of doc are shared with the result.
func Apply(doc *ir.Node, ps ...Patch) (*ir.Node, error) {
	res := doc
	for i := range ps {
		var err error
		res, err = applyOne(res, &ps[i])
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s): %w", i, ps[i].Op, err)
		}
	}
	return res, nil
}

func applyOne(doc *ir.Node, p *Patch) (*ir.Node, error) {
	switch p.Op {
	case Add, Replace, Remove:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadOp, p.Op)
	}
	if len(p.Path) == 0 {
		if p.Op == Remove {
			return ir.Null(), nil
		}
		return orNull(p.Value), nil
	}
	return applyAt(doc, p.Path, p)
}

func applyAt(node *ir.Node, path ir.Path, p *Patch) (*ir.Node, error) {
	k := path[0]
	if len(path) > 1 {
		child, err := childAt(node, k)
		if err != nil {
			return nil, err
		}
		nc, err := applyAt(child, path[1:], p)
		if err != nil {
			return nil, err
		}
		res := node.ShallowCopy()
		if k.IsIndex() {
			res.Values[k.Index()] = nc
		} else {
			res.Values[res.FieldIndex(k.Field())] = nc
		}
		return res, nil
	}
	if k.IsIndex() {
		return applyArray(node, k.Index(), p)
	}
	return applyObject(node, k.Field(), p)
}

func childAt(node *ir.Node, k ir.Key) (*ir.Node, error) {
	if k.IsIndex() {
		if node.Type != ir.ArrayType {
			return nil, fmt.Errorf("%w: index %d into %s", ErrBadPath, k.Index(), node.Type)
		}
		if k.Index() < 0 || k.Index() >= len(node.Values) {
			return nil, fmt.Errorf("%w: index %d out of bounds (len %d)", ErrBadPath, k.Index(), len(node.Values))
		}
		return node.Values[k.Index()], nil
	}
	if node.Type != ir.ObjectType {
		return nil, fmt.Errorf("%w: field %q of %s", ErrBadPath, k.Field(), node.Type)
	}
	v := ir.Get(node, k.Field())
	if v == nil {
		return nil, fmt.Errorf("%w: no field %q", ErrBadPath, k.Field())
	}
	return v, nil
}

func applyArray(node *ir.Node, i int, p *Patch) (*ir.Node, error) {
	if node.Type != ir.ArrayType {
		return nil, fmt.Errorf("%w: index %d into %s", ErrBadPath, i, node.Type)
	}
	n := len(node.Values)
	res := node.ShallowCopy()
	switch p.Op {
	case Add:
		if i < 0 || i > n {
			return nil, fmt.Errorf("%w: add at %d (len %d)", ErrConflict, i, n)
		}
		vals := make([]*ir.Node, 0, n+1)
		vals = append(vals, node.Values[:i]...)
		vals = append(vals, orNull(p.Value))
		res.Values = append(vals, node.Values[i:]...)
	case Replace:
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: replace at %d (len %d)", ErrConflict, i, n)
		}
		res.Values[i] = orNull(p.Value)
	case Remove:
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: remove at %d (len %d)", ErrConflict, i, n)
		}
		res.Values = append(res.Values[:i], res.Values[i+1:]...)
	}
	return res, nil
}

func applyObject(node *ir.Node, f string, p *Patch) (*ir.Node, error) {
	if node.Type != ir.ObjectType {
		return nil, fmt.Errorf("%w: field %q of %s", ErrBadPath, f, node.Type)
	}
	i := node.FieldIndex(f)
	res := node.ShallowCopy()
	switch p.Op {
	case Add, Replace:
		if i == -1 {
			if p.Op == Replace {
				return nil, fmt.Errorf("%w: replace missing field %q", ErrConflict, f)
			}
			res.Fields = append(res.Fields, f)
			res.Values = append(res.Values, orNull(p.Value))
			return res, nil
		}
		res.Values[i] = orNull(p.Value)
	case Remove:
		if i == -1 {
			return nil, fmt.Errorf("%w: remove missing field %q", ErrConflict, f)
		}
		res.Fields = append(res.Fields[:i], res.Fields[i+1:]...)
		res.Values = append(res.Values[:i], res.Values[i+1:]...)
	}
	return res, nil
}
