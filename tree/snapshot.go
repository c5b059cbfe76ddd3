package tree

import (
	"fmt"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
)

// GetSnapshot returns the snapshot of a live value.
//
// Snapshots of containers are cached: as long as neither n nor any of its
// descendants changes, repeated calls return the identical *ir.Node, and a
// mutation reallocates only the snapshots on the path from the mutated node
// to the root.
func GetSnapshot(v any) *ir.Node {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return primitiveSnapshot(v)
	}
	n.atom.ReportObserved()
	return n.arena.snapshot(n)
}

func primitiveSnapshot(v any) *ir.Node {
	switch x := v.(type) {
	case nil:
		return ir.Null()
	case bool:
		return ir.FromBool(x)
	case string:
		return ir.FromString(x)
	case int64:
		return ir.FromInt(x)
	case float64:
		return ir.FromFloat(x)
	}
	if p, ok := normalizePrimitive(v); ok {
		return primitiveSnapshot(p)
	}
	panic(fmt.Sprintf("snapshot of %T", v))
}

// snap is GetSnapshot without observation.
func (a *Arena) snap(v any) *ir.Node {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return primitiveSnapshot(v)
	}
	return n.arena.snapshot(n)
}

func (a *Arena) snapshot(n *Node) *ir.Node {
	if e := a.entries[n.id]; e != nil && e.snap != nil && e.snapVer == n.version {
		if h := a.cfg.Hooks.OnSnapshot; h != nil {
			h(n, true)
		}
		return e.snap
	}
	var res *ir.Node
	switch n.kind {
	case ArrayKind, SetKind:
		vals := make([]*ir.Node, len(n.items))
		for i, v := range n.items {
			vals[i] = a.snap(v)
		}
		res = ir.FromSlice(vals)
	case ObjectKind, MapKind:
		kvs := make([]ir.KeyVal, len(n.keys))
		for i, k := range n.keys {
			kvs[i] = ir.KeyVal{Key: k, Val: a.snap(n.fields[k])}
		}
		res = ir.FromKeyVals(kvs)
	case ModelKind:
		res = a.modelSnapshot(n)
	}
	e := a.entry(n)
	e.snap = res
	e.snapVer = n.version
	if h := a.cfg.Hooks.OnSnapshot; h != nil {
		h(n, false)
	}
	if debug.Snapshot() {
		debug.Logf("snapshot %s v%d: %v", n, n.version, res)
	}
	return res
}

func (a *Arena) modelSnapshot(n *Node) *ir.Node {
	mt := n.model
	kvs := make([]ir.KeyVal, 0, len(mt.Props))
	for i := range mt.Props {
		p := &mt.Props[i]
		kvs = append(kvs, ir.KeyVal{Key: p.Name, Val: p.ToSnapshot.Out(a.snap(n.fields[p.Name]))})
	}
	return a.withIdentity(mt.ToSnapshot.Out(ir.FromKeyVals(kvs)), mt, n.modelID)
}

// withIdentity puts the type key and id property first in a model
// snapshot, replacing whatever processors left there.
func (a *Arena) withIdentity(sn *ir.Node, mt *ModelType, id string) *ir.Node {
	if sn == nil || sn.Type != ir.ObjectType {
		return sn
	}
	kvs := make([]ir.KeyVal, 0, len(sn.Fields)+2)
	kvs = append(kvs,
		ir.KeyVal{Key: a.cfg.TypeKey, Val: ir.FromString(mt.Name)},
		ir.KeyVal{Key: mt.IDProp, Val: ir.FromString(id)})
	for i, f := range sn.Fields {
		if f == a.cfg.TypeKey || f == mt.IDProp {
			continue
		}
		kvs = append(kvs, ir.KeyVal{Key: f, Val: sn.Values[i]})
	}
	return ir.FromKeyVals(kvs)
}

type fromConfig struct {
	kind   Kind
	newIDs bool
}

type FromOpt func(*fromConfig)

// FromKind asks for an object snapshot to become a map, or an array
// snapshot a set.
func FromKind(k Kind) FromOpt {
	return func(c *fromConfig) { c.kind = k }
}

// WithNewIDs generates fresh ids for the models in the snapshot.
func WithNewIDs() FromOpt {
	return func(c *fromConfig) { c.newIDs = true }
}

// FromSnapshot instantiates a snapshot as a new live value. Objects carrying
// the arena's type key become models of the registered type.
func (a *Arena) FromSnapshot(sn *ir.Node, opts ...FromOpt) (any, error) {
	cfg := &fromConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	a.begin()
	defer a.end()
	return a.fromSnapshot(sn, cfg.kind, cfg.newIDs)
}

func (a *Arena) fromSnapshot(sn *ir.Node, hint Kind, newIDs bool) (any, error) {
	if sn == nil {
		return nil, nil
	}
	switch sn.Type {
	case ir.NullType:
		return nil, nil
	case ir.BoolType:
		return sn.Bool, nil
	case ir.StringType:
		return sn.String, nil
	case ir.NumberType:
		return sn.NumberValue(), nil
	case ir.ArrayType:
		n := a.newNode(listKind(hint))
		for _, sv := range sn.Values {
			v, err := a.fromSnapshot(sv, 0, newIDs)
			if err != nil {
				return nil, err
			}
			if n.kind == SetKind && n.indexOf(v) != -1 {
				continue
			}
			adopt(n, ir.Index(len(n.items)), v)
			n.items = append(n.items, v)
		}
		return n, nil
	case ir.ObjectType:
		if t := ir.Get(sn, a.cfg.TypeKey); t != nil && t.Type == ir.StringType && hint != MapKind {
			return a.modelFromSnapshot(sn, t.String, newIDs)
		}
		n := a.newNode(keyedKind(hint))
		for i, f := range sn.Fields {
			v, err := a.fromSnapshot(sn.Values[i], 0, newIDs)
			if err != nil {
				return nil, err
			}
			if _, dup := n.fields[f]; !dup {
				n.keys = append(n.keys, f)
			}
			adopt(n, ir.Field(f), v)
			n.fields[f] = v
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: type %s", ErrBadSnapshot, sn.Type)
}

func (a *Arena) modelFromSnapshot(sn *ir.Node, name string, newIDs bool) (*Node, error) {
	mt := a.cfg.Registry.Lookup(name)
	if mt == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	sn = mt.FromSnapshot.In(sn)
	id := ""
	if idn := ir.Get(sn, mt.IDProp); idn != nil && !newIDs {
		if idn.Type != ir.StringType {
			return nil, fmt.Errorf("%w: %s id is %s", ErrBadSnapshot, name, idn.Type)
		}
		id = idn.String
	}
	if id == "" {
		id = a.cfg.IDGenerator()
	}
	n := a.newNode(ModelKind)
	n.model = mt
	n.modelID = id
	for i := range mt.Props {
		p := &mt.Props[i]
		var (
			v   any
			err error
		)
		if psn := ir.Get(sn, p.Name); psn != nil {
			v, err = a.fromSnapshot(p.FromSnapshot.In(psn), p.Kind, newIDs)
			if err == nil {
				adopt(n, ir.Field(p.Name), v)
			}
		} else {
			v, err = a.prepare(p.defaultValue(), p.Kind)
			if err == nil {
				v, err = a.attach(n, ir.Field(p.Name), v)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, p.Name, err)
		}
		if err := a.validateProp(mt, p, v); err != nil {
			return nil, err
		}
		n.fields[p.Name] = v
	}
	return n, nil
}

// adopt links a freshly created child to its parent.
func adopt(parent *Node, k ir.Key, v any) {
	if c, ok := v.(*Node); ok && c != nil {
		c.parent = parent
		c.key = k
	}
}
