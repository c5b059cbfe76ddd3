package typecheck

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/treestate/ir"
)

// Refinement accepts values accepted by base for which the boolean
// expression predicate holds. The expression sees the plain data form of
// the value as `value`:
//
//	positive, err := typecheck.Refinement(typecheck.Number(), "positive", "value > 0")
func Refinement(base *Checker, name, predicate string) (*Checker, error) {
	prog, err := expr.Compile(predicate, expr.Env(map[string]any{"value": nil}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrExpr, predicate, err)
	}
	return newChecker(name, func(v any) *Error {
		if e := base.check(v); e != nil {
			return e
		}
		ok, err := eval(prog, v)
		if err != nil {
			return fail(name+" ("+err.Error()+")", v)
		}
		if !ok {
			return fail(name, v)
		}
		return nil
	}), nil
}

func eval(prog *vm.Program, v any) (bool, error) {
	out, err := expr.Run(prog, map[string]any{"value": ir.ToAny(snapshotOf(v))})
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}
