// Package modelpool indexes the models of a live tree by type and id.
package modelpool

import "github.com/signadot/treestate/tree"

type key struct {
	typ string
	id  string
}

// Pool finds models by (type, id) below a root. The index is built on the
// first lookup or by Prime, so a pool that is never used costs nothing.
// Once built the index keeps models that have since been detached; this is
// what lets a reconciliation pass move a model.
type Pool struct {
	root  any
	index map[key]*tree.Node
}

func New(root any) *Pool {
	return &Pool{root: root}
}

func (p *Pool) build() {
	p.index = map[key]*tree.Node{}
	n, ok := p.root.(*tree.Node)
	if !ok || n == nil {
		return
	}
	n.Walk(func(x *tree.Node) {
		if x.Kind() != tree.ModelKind {
			return
		}
		k := key{typ: x.ModelType().Name, id: x.ModelID()}
		if _, dup := p.index[k]; !dup {
			p.index[k] = x
		}
	})
}

// FindByTypeAndID returns the model with the given type name and id, or
// nil.
func (p *Pool) FindByTypeAndID(typ, id string) *tree.Node {
	if p.index == nil {
		p.build()
	}
	return p.index[key{typ: typ, id: id}]
}

// Add makes n findable. Models created during a reconciliation pass are
// added so that later references to the same (type, id) reuse them.
func (p *Pool) Add(n *tree.Node) {
	if n == nil || n.Kind() != tree.ModelKind {
		return
	}
	if p.index == nil {
		p.build()
	}
	p.index[key{typ: n.ModelType().Name, id: n.ModelID()}] = n
}

// Prime builds the index now if it has not been built. Callers prime the
// pool before mutating the tree so that models about to be detached remain
// findable.
func (p *Pool) Prime() {
	if p.index == nil {
		p.build()
	}
}

// Built reports whether the index has been built.
func (p *Pool) Built() bool {
	return p.index != nil
}
