// Package reconcile merges snapshots into live trees, keeping the identity
// of nodes which survive.
//
// Reconciliation walks a live value and a target snapshot together. Where
// the snapshot of the live value is already the target, the value is kept
// as is. Otherwise the first registered reconciler accepting the pair
// merges the snapshot in place, or builds a new value. Models are matched
// by type and id through a model pool, so a model moved to another place
// in the snapshot is moved, not recreated.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/modelpool"
	"github.com/signadot/treestate/tree"
)

var (
	ErrUnsupportedSnapshot = errors.New("unsupported snapshot")
	ErrCollectionSnapshot  = errors.New("map or set in snapshot position")
	ErrIdentity            = errors.New("snapshot does not match node identity")
	ErrBadPatch            = errors.New("bad patch")
)

// Outcome tells what reconciliation did with a value.
type Outcome string

const (
	// Identical means the value's snapshot already was the target.
	Identical Outcome = "identical"
	// Merged means the value was updated in place.
	Merged Outcome = "merged"
	// Pooled means a model was found in the pool and reused.
	Pooled Outcome = "pooled"
	// Created means a new value was built.
	Created Outcome = "created"
)

type Hooks struct {
	OnReconcile func(kind SnapshotKind, outcome Outcome)
}

type Engine struct {
	arena *tree.Arena
	reg   *Registry
	hooks Hooks
}

type Option func(*Engine)

func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.reg = r }
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

func New(a *tree.Arena, opts ...Option) *Engine {
	e := &Engine{arena: a}
	for _, opt := range opts {
		opt(e)
	}
	if e.reg == nil {
		e.reg = DefaultRegistry()
	}
	return e
}

func (e *Engine) Arena() *tree.Arena {
	return e.arena
}

// Report records the outcome of a reconciliation step. Custom reconcilers
// call it for the values they produce.
func (e *Engine) Report(kind SnapshotKind, o Outcome) {
	if e.hooks.OnReconcile != nil {
		e.hooks.OnReconcile(kind, o)
	}
	if debug.Reconcile() {
		debug.Logf("reconcile %s: %s", kind, o)
	}
}

// Reconcile returns a live value whose snapshot equals sn, reusing cur and
// the models in pool where possible. sn is normally an *ir.Node; plain Go
// data is converted. parent is the node the result is meant to be attached
// to; a nil pool disables lookups of models outside cur.
func (e *Engine) Reconcile(cur any, sn any, pool *modelpool.Pool, parent *tree.Node) (any, error) {
	y, err := asSnapshot(sn)
	if err != nil {
		return nil, err
	}
	var res any
	err = e.arena.Batch(func() error {
		var err error
		res, err = e.reconcile(&Call{Current: cur, Snapshot: y, Pool: pool, Parent: parent})
		return err
	})
	return res, err
}

func asSnapshot(v any) (*ir.Node, error) {
	switch x := v.(type) {
	case *ir.Node:
		if x == nil {
			return ir.Null(), nil
		}
		return x, nil
	case *tree.Node:
		switch x.Kind() {
		case tree.MapKind, tree.SetKind:
			return nil, fmt.Errorf("%w: %s", ErrCollectionSnapshot, x)
		}
		return nil, fmt.Errorf("%w: live %s", ErrUnsupportedSnapshot, x)
	}
	y, err := ir.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSnapshot, err)
	}
	return y, nil
}

func (e *Engine) reconcile(c *Call) (any, error) {
	kind := InspectSnapshot(c.Snapshot, e.arena.TypeKey())
	if kind == PrimitiveSnapshot {
		return e.arena.FromSnapshot(c.Snapshot)
	}
	if n, ok := c.Current.(*tree.Node); ok && n != nil && tree.GetSnapshot(n) == c.Snapshot {
		e.Report(kind, Identical)
		return n, nil
	}
	if c.Pool != nil && tree.IsNode(c.Current) {
		c.Pool.Prime()
	}
	var (
		res     any
		claimed bool
		err     error
	)
	e.reg.each(kind, func(r Reconciler) bool {
		res, claimed, err = r(e, c)
		return !claimed && err == nil
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSnapshot, kind)
	}
	return res, nil
}

// child reconciles one slot of parent.
func (e *Engine) child(cur any, sn *ir.Node, c *Call, parent *tree.Node, hint tree.Kind) (any, error) {
	return e.reconcile(&Call{Current: cur, Snapshot: sn, Pool: c.Pool, Parent: parent, Hint: hint})
}

// ApplySnapshot reconciles n in place with sn. n keeps its identity; a
// snapshot that would require replacing n, such as one of another model or
// kind, is an error.
func (e *Engine) ApplySnapshot(n *tree.Node, sn *ir.Node) error {
	return e.arena.Batch(func() error {
		return e.applySnapshot(n, sn, modelpool.New(n.Root()))
	})
}

func (e *Engine) applySnapshot(n *tree.Node, sn *ir.Node, pool *modelpool.Pool) error {
	var hint tree.Kind
	switch n.Kind() {
	case tree.MapKind, tree.SetKind:
		hint = n.Kind()
	}
	v, err := e.reconcile(&Call{Current: n, Snapshot: sn, Pool: pool, Parent: n.Parent(), Hint: hint})
	if err != nil {
		return err
	}
	if v != any(n) {
		return fmt.Errorf("%w: %s", ErrIdentity, n)
	}
	return nil
}
