package typecheck

import (
	"fmt"
	"math"
	"strings"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
)

// Unchecked accepts anything.
func Unchecked() *Checker {
	return newChecker("any", func(any) *Error { return nil })
}

func String() *Checker {
	return primitive("string", func(v any) bool {
		_, ok := v.(string)
		return ok
	})
}

func Number() *Checker {
	return primitive("number", func(v any) bool {
		switch v.(type) {
		case int64, float64:
			return true
		}
		return false
	})
}

func Integer() *Checker {
	return primitive("integer", func(v any) bool {
		switch x := v.(type) {
		case int64:
			return true
		case float64:
			return x == math.Trunc(x) && !math.IsInf(x, 0)
		}
		return false
	})
}

func Bool() *Checker {
	return primitive("boolean", func(v any) bool {
		_, ok := v.(bool)
		return ok
	})
}

func Null() *Checker {
	return primitive("null", func(v any) bool { return v == nil })
}

func primitive(name string, ok func(any) bool) *Checker {
	return newChecker(name, func(v any) *Error {
		if ok(v) {
			return nil
		}
		return fail(name, v)
	})
}

// Literal accepts primitives equal to lit.
func Literal(lit any) *Checker {
	want, err := ir.FromAny(lit)
	if err != nil || !want.Type.IsLeaf() {
		panic(fmt.Sprintf("literal %v", lit))
	}
	d, _ := ir.ToJSON(want)
	name := string(d)
	return newChecker(name, func(v any) *Error {
		if !tree.IsNode(v) && ir.Equal(snapshotOf(v), want) {
			return nil
		}
		return fail(name, v)
	})
}

// Or accepts values accepted by any of cs.
func Or(cs ...*Checker) *Checker {
	c := &Checker{}
	c.fn = func(v any) *Error {
		for _, x := range cs {
			if x.check(v) == nil {
				return nil
			}
		}
		return fail(c.name, v)
	}
	names := make([]string, len(cs))
	for i, x := range cs {
		if x.late != nil {
			names[i] = "late"
			continue
		}
		names[i] = x.name
	}
	c.name = strings.Join(names, " | ")
	return c
}

func Maybe(c *Checker) *Checker {
	return Or(c, Null())
}

func isKind(v any, k tree.Kind) (*tree.Node, bool) {
	n, ok := v.(*tree.Node)
	if !ok || n == nil || n.Kind() != k {
		return nil, false
	}
	return n, true
}

// ArrayOf accepts arrays whose items are accepted by elem.
func ArrayOf(elem *Checker) *Checker {
	name := "Array<" + lateName(elem) + ">"
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, tree.ArrayKind)
		if !ok {
			return fail(name, v)
		}
		for i, item := range n.Items() {
			if e := elem.check(item); e != nil {
				return e.withPrefix(ir.Path{ir.Index(i)})
			}
		}
		return nil
	})
}

// Tuple accepts arrays of exactly len(cs) items, item i accepted by cs[i].
func Tuple(cs ...*Checker) *Checker {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = lateName(c)
	}
	name := "[" + strings.Join(names, ", ") + "]"
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, tree.ArrayKind)
		if !ok || n.Len() != len(cs) {
			return fail(name, v)
		}
		for i, c := range cs {
			if e := c.check(n.At(i)); e != nil {
				return e.withPrefix(ir.Path{ir.Index(i)})
			}
		}
		return nil
	})
}

type Field struct {
	Name string
	Type *Checker
}

// Object accepts objects whose listed fields are accepted by their
// checkers. Absent fields are checked as null; other fields are ignored.
func Object(fields ...Field) *Checker {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + ": " + lateName(f.Type)
	}
	name := "{ " + strings.Join(parts, "; ") + " }"
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, tree.ObjectKind)
		if !ok {
			return fail(name, v)
		}
		for _, f := range fields {
			if e := f.Type.check(n.Get(f.Name)); e != nil {
				return e.withPrefix(ir.Path{ir.Field(f.Name)})
			}
		}
		return nil
	})
}

// Record accepts objects all of whose values are accepted by val.
func Record(val *Checker) *Checker {
	return keyed("Record<string, "+lateName(val)+">", tree.ObjectKind, val)
}

// MapOf accepts maps all of whose values are accepted by val.
func MapOf(val *Checker) *Checker {
	return keyed("Map<string, "+lateName(val)+">", tree.MapKind, val)
}

func keyed(name string, kind tree.Kind, val *Checker) *Checker {
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, kind)
		if !ok {
			return fail(name, v)
		}
		for _, k := range n.Keys() {
			if e := val.check(n.Get(k)); e != nil {
				return e.withPrefix(ir.Path{ir.Field(k)})
			}
		}
		return nil
	})
}

// SetOf accepts sets all of whose items are accepted by elem.
func SetOf(elem *Checker) *Checker {
	name := "Set<" + lateName(elem) + ">"
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, tree.SetKind)
		if !ok {
			return fail(name, v)
		}
		for i, item := range n.Items() {
			if e := elem.check(item); e != nil {
				return e.withPrefix(ir.Path{ir.Index(i)})
			}
		}
		return nil
	})
}

// Model accepts instances of mt whose properties satisfy their declared
// types.
func Model(mt *tree.ModelType) *Checker {
	name := "Model(" + mt.Name + ")"
	return newChecker(name, func(v any) *Error {
		n, ok := isKind(v, tree.ModelKind)
		if !ok || n.ModelType() != mt {
			return fail(name, v)
		}
		for i := range mt.Props {
			p := &mt.Props[i]
			if p.Type == nil {
				continue
			}
			pv := n.Get(p.Name)
			var e *Error
			if c, ok := p.Type.(*Checker); ok {
				e = c.check(pv)
			} else if err := p.Type.Validate(pv); err != nil {
				e = fail(err.Error(), pv)
			}
			if e != nil {
				return e.withPrefix(ir.Path{ir.Field(p.Name)})
			}
		}
		return nil
	})
}

// Late defers building a checker until it is first used, for recursive
// types.
func Late(f func() *Checker) *Checker {
	return &Checker{late: f}
}

// lateName avoids resolving late checkers while building names.
func lateName(c *Checker) string {
	if c.late != nil {
		return "late"
	}
	return c.name
}
