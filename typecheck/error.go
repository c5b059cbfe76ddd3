package typecheck

import (
	"errors"
	"fmt"

	"github.com/signadot/treestate/ir"
)

var ErrExpr = errors.New("refinement expression")

// Error describes the first value that failed a check. Value is the
// snapshot of the offending value, so keeping an Error does not keep live
// nodes alive.
type Error struct {
	Path     ir.Path
	Expected string
	Value    *ir.Node
}

func (e *Error) Error() string {
	at := "value"
	if len(e.Path) != 0 {
		at = e.Path.String()
	}
	got := "?"
	if d, err := ir.ToJSON(e.Value); err == nil {
		got = string(d)
	}
	return fmt.Sprintf("%s: expected %s, got %s", at, e.Expected, got)
}

func (e *Error) withPrefix(p ir.Path) *Error {
	if e == nil || len(p) == 0 {
		return e
	}
	return &Error{Path: e.Path.Prefix(p), Expected: e.Expected, Value: e.Value}
}
