package reconcile

import (
	"fmt"
	"slices"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/modelpool"
	"github.com/signadot/treestate/tree"
)

// SnapshotKind classifies a snapshot for reconciler dispatch.
type SnapshotKind int

const (
	PrimitiveSnapshot SnapshotKind = iota + 1
	ArraySnapshot
	ObjectSnapshot
	ModelSnapshot
)

func (k SnapshotKind) String() string {
	switch k {
	case PrimitiveSnapshot:
		return "primitive"
	case ArraySnapshot:
		return "array"
	case ObjectSnapshot:
		return "object"
	case ModelSnapshot:
		return "model"
	default:
		return fmt.Sprintf("SnapshotKind(%d)", int(k))
	}
}

// InspectSnapshot returns the kind of sn. Objects with a string under
// typeKey are models.
func InspectSnapshot(sn *ir.Node, typeKey string) SnapshotKind {
	switch sn.Type {
	case ir.ArrayType:
		return ArraySnapshot
	case ir.ObjectType:
		if t := ir.Get(sn, typeKey); t != nil && t.Type == ir.StringType {
			return ModelSnapshot
		}
		return ObjectSnapshot
	default:
		return PrimitiveSnapshot
	}
}

// Call is one reconciliation request.
type Call struct {
	Current  any
	Snapshot *ir.Node
	Pool     *modelpool.Pool
	Parent   *tree.Node
	// Hint is the kind declared for the target slot, MapKind or SetKind
	// for model properties holding collections, zero otherwise.
	Hint tree.Kind
}

// Reconciler handles a call or declines it by returning ok == false.
type Reconciler func(e *Engine, c *Call) (v any, ok bool, err error)

type registration struct {
	kind     SnapshotKind
	priority int
	r        Reconciler
}

// Registry holds reconcilers ordered by priority, lowest first.
type Registry struct {
	regs []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds r for snapshots of kind. Reconcilers with equal priority
// are tried in registration order.
func (r *Registry) Register(kind SnapshotKind, priority int, rec Reconciler) {
	reg := registration{kind: kind, priority: priority, r: rec}
	i := slices.IndexFunc(r.regs, func(x registration) bool { return x.priority > priority })
	if i == -1 {
		i = len(r.regs)
	}
	r.regs = slices.Insert(r.regs, i, reg)
}

func (r *Registry) each(kind SnapshotKind, f func(Reconciler) bool) {
	for _, reg := range r.regs {
		if reg.kind == kind && !f(reg.r) {
			return
		}
	}
}

// DefaultRegistry returns a registry with the model, array, map, set and
// object reconcilers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ModelSnapshot, 100, reconcileModel)
	r.Register(ArraySnapshot, 200, reconcileArray)
	r.Register(ObjectSnapshot, 300, reconcileMap)
	r.Register(ArraySnapshot, 400, reconcileSet)
	r.Register(ObjectSnapshot, 500, reconcileObject)
	return r
}
