// Package patch defines structural edit records over snapshots and applies
// them.
//
// A Patch is one of add, replace or remove at a path. Lists of patches are
// applied in order; Invert derives the list that undoes them.
package patch

import (
	"errors"
	"fmt"

	"github.com/signadot/treestate/ir"
)

type Op string

const (
	Add     Op = "add"
	Replace Op = "replace"
	Remove  Op = "remove"
)

var (
	ErrBadOp    = errors.New("bad patch op")
	ErrBadPath  = errors.New("bad patch path")
	ErrConflict = errors.New("patch does not apply")
)

// Patch is one structural edit. OldValue holds the replaced or removed
// value so that the patch can be inverted.
type Patch struct {
	Op       Op       `json:"op"`
	Path     ir.Path  `json:"path"`
	Value    *ir.Node `json:"value,omitempty"`
	OldValue *ir.Node `json:"oldValue,omitempty"`
}

func (p Patch) String() string {
	switch p.Op {
	case Remove:
		return fmt.Sprintf("remove %s", p.Path)
	default:
		d, err := ir.ToJSON(orNull(p.Value))
		if err != nil {
			return fmt.Sprintf("%s %s = <%v>", p.Op, p.Path, err)
		}
		return fmt.Sprintf("%s %s = %s", p.Op, p.Path, d)
	}
}

// Inverse returns the patch undoing p.
func (p Patch) Inverse() Patch {
	switch p.Op {
	case Add:
		return Patch{Op: Remove, Path: p.Path, OldValue: p.Value}
	case Remove:
		return Patch{Op: Add, Path: p.Path, Value: p.OldValue}
	default:
		return Patch{Op: Replace, Path: p.Path, Value: p.OldValue, OldValue: p.Value}
	}
}

// Invert returns the patches undoing ps, in the order they must be applied.
func Invert(ps []Patch) []Patch {
	res := make([]Patch, len(ps))
	for i := range ps {
		res[len(ps)-1-i] = ps[i].Inverse()
	}
	return res
}

// WithPrefix returns copies of ps with prefix prepended to every path.
func WithPrefix(prefix ir.Path, ps []Patch) []Patch {
	if len(prefix) == 0 {
		return ps
	}
	res := make([]Patch, len(ps))
	for i, p := range ps {
		p.Path = p.Path.Prefix(prefix)
		res[i] = p
	}
	return res
}

func orNull(n *ir.Node) *ir.Node {
	if n == nil {
		return ir.Null()
	}
	return n
}
