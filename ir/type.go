package ir

import (
	"fmt"
	"slices"
)

// Type is the JSON type of a Node.
type Type int

const (
	NullType Type = iota
	NumberType
	StringType
	BoolType
	ObjectType
	ArrayType
)

var typeNames = []string{"null", "number", "string", "boolean", "object", "array"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(d []byte) error {
	i := slices.Index(typeNames, string(d))
	if i == -1 {
		return fmt.Errorf("unrecognized type %q", d)
	}
	*t = Type(i)
	return nil
}

// IsLeaf is true for all but objects and arrays.
func (t Type) IsLeaf() bool {
	return t != ObjectType && t != ArrayType
}
