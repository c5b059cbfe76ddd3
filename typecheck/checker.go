// Package typecheck validates live values against runtime type checkers.
//
// Checkers are built by composition:
//
//	todo := typecheck.Object(
//	    typecheck.Field{Name: "title", Type: typecheck.String()},
//	    typecheck.Field{Name: "tags", Type: typecheck.ArrayOf(typecheck.String())},
//	)
//	if err := todo.Check(v, nil); err != nil { ... }
//
// Results for containers are memoized per (checker, node) in the node's
// arena and dropped whenever the node or one of its descendants changes.
package typecheck

import (
	"fmt"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
)

// Checker checks a live value. A Checker is also a tree.Validator, so it
// may be used as a model property type.
type Checker struct {
	name string
	fn   func(v any) *Error

	late     func() *Checker
	resolved *Checker
}

type memoKey struct {
	c *Checker
}

func newChecker(name string, fn func(v any) *Error) *Checker {
	return &Checker{name: name, fn: fn}
}

func (c *Checker) resolve() *Checker {
	for c.late != nil {
		if c.resolved == nil {
			c.resolved = c.late()
		}
		c = c.resolved
	}
	return c
}

// Name describes the accepted values, for example "Array<string>".
func (c *Checker) Name() string {
	return c.resolve().name
}

// Check returns nil if v is accepted, or an Error whose path is prefixed
// with path.
func (c *Checker) Check(v any, path ir.Path) *Error {
	return c.resolve().check(v).withPrefix(path)
}

// Validate is Check as an error.
func (c *Checker) Validate(v any) error {
	if e := c.Check(v, nil); e != nil {
		return e
	}
	return nil
}

// check returns the error with a path relative to v.
func (c *Checker) check(v any) *Error {
	c = c.resolve()
	n, ok := v.(*tree.Node)
	if !ok || n == nil {
		return c.fn(v)
	}
	a := n.Arena()
	key := memoKey{c}
	if m, ok := a.Memo(n, key); ok {
		return m.(*Error)
	}
	e := c.fn(v)
	a.SetMemo(n, key, e)
	if debug.Check() {
		debug.Logf("check %s as %s: %v", n, c.name, e)
	}
	return e
}

func fail(expected string, v any) *Error {
	return &Error{Expected: expected, Value: snapshotOf(v)}
}

// snapshotOf is tree.GetSnapshot for anything a checker may be handed,
// including raw Go values that were never tweaked.
func snapshotOf(v any) *ir.Node {
	if n, ok := v.(*tree.Node); ok && n != nil {
		return tree.GetSnapshot(n)
	}
	if y, err := ir.FromAny(v); err == nil {
		return y
	}
	return ir.FromString(fmt.Sprintf("%T", v))
}
