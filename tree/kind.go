package tree

import (
	"fmt"
	"math"
)

// Kind is the variant of a live value.
type Kind int

const (
	PrimitiveKind Kind = iota + 1
	ArrayKind
	ObjectKind
	MapKind
	SetKind
	ModelKind
)

func (k Kind) String() string {
	switch k {
	case PrimitiveKind:
		return "primitive"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	case MapKind:
		return "map"
	case SetKind:
		return "set"
	case ModelKind:
		return "model"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Inspect returns the kind of a live value. Anything that is not a *Node is
// treated as a primitive.
func Inspect(v any) Kind {
	if n, ok := v.(*Node); ok && n != nil {
		return n.kind
	}
	return PrimitiveKind
}

// IsNode reports whether v is a live container.
func IsNode(v any) bool {
	n, ok := v.(*Node)
	return ok && n != nil
}

// normalizePrimitive maps Go scalars to the primitive representation used by
// live values: nil, bool, int64, float64 or string.
func normalizePrimitive(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case bool, string, int64, float64:
		return v, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return uintValue(uint64(x)), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return uintValue(x), true
	case float32:
		return float64(x), true
	}
	return nil, false
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// sameValue is identity for nodes and value equality for primitives. Integer
// and float primitives compare numerically.
func sameValue(a, b any) bool {
	an, aok := a.(*Node)
	bn, bok := b.(*Node)
	if aok || bok {
		return aok && bok && an == bn
	}
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	}
	return a == b
}
