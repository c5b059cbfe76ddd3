package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// Node is an immutable snapshot value. Snapshot nodes never record their
// parent so that an unchanged child can be shared by many parents.
//
// For ObjectType nodes, Fields[i] is the key of Values[i].
type Node struct {
	Type   Type
	Fields []string
	Values []*Node

	String  string
	Bool    bool
	Number  string
	Float64 *float64
	Int64   *int64
}

func Null() *Node {
	return &Node{Type: NullType}
}

func FromString(v string) *Node {
	return &Node{Type: StringType, String: v}
}

func FromInt(v int64) *Node {
	return &Node{
		Type:  NumberType,
		Int64: &v,
	}
}

func FromFloat(f float64) *Node {
	return &Node{
		Type:    NumberType,
		Float64: &f,
	}
}

func FromBool(v bool) *Node {
	return &Node{
		Type: BoolType,
		Bool: v,
	}
}

func FromSlice(ySlice []*Node) *Node {
	return &Node{
		Type:   ArrayType,
		Values: ySlice,
	}
}

type KeyVal struct {
	Key string
	Val *Node
}

// FromKeyVals builds an object keeping the order of kvs.
func FromKeyVals(kvs []KeyVal) *Node {
	res := &Node{
		Type:   ObjectType,
		Fields: make([]string, len(kvs)),
		Values: make([]*Node, len(kvs)),
	}
	for i := range kvs {
		res.Fields[i] = kvs[i].Key
		res.Values[i] = kvs[i].Val
	}
	return res
}

// FromMap builds an object with sorted keys.
func FromMap(yMap map[string]*Node) *Node {
	keys := slices.Sorted(maps.Keys(yMap))
	kvs := make([]KeyVal, len(keys))
	for i, k := range keys {
		kvs[i] = KeyVal{Key: k, Val: yMap[k]}
	}
	return FromKeyVals(kvs)
}

// Get returns the value of field in an object node, or nil.
func Get(y *Node, field string) *Node {
	if y == nil || y.Type != ObjectType {
		return nil
	}
	for i, f := range y.Fields {
		if f == field {
			return y.Values[i]
		}
	}
	return nil
}

// FieldIndex returns the index of field in an object node or -1.
func (y *Node) FieldIndex(field string) int {
	for i, f := range y.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

func (y *Node) Len() int {
	return len(y.Values)
}

// ShallowCopy copies the container slices of y so that the copy may be
// modified without affecting y. Children are shared.
func (y *Node) ShallowCopy() *Node {
	res := *y
	res.Fields = slices.Clone(y.Fields)
	res.Values = slices.Clone(y.Values)
	return &res
}

// Clone is a deep copy.
func (y *Node) Clone() *Node {
	res := y.ShallowCopy()
	if y.Float64 != nil {
		f := *y.Float64
		res.Float64 = &f
	}
	if y.Int64 != nil {
		i := *y.Int64
		res.Int64 = &i
	}
	for i, v := range res.Values {
		res.Values[i] = v.Clone()
	}
	return res
}

func (y *Node) Visit(f func(y *Node, path Path) (bool, error)) error {
	return y.visit(nil, f)
}

func (y *Node) visit(path Path, f func(y *Node, path Path) (bool, error)) error {
	dive, err := f(y, path)
	if err != nil || !dive {
		return err
	}
	for i, v := range y.Values {
		var k Key
		if y.Type == ObjectType {
			k = Field(y.Fields[i])
		} else {
			k = Index(i)
		}
		if err := v.visit(path.Append(k), f); err != nil {
			return err
		}
	}
	return nil
}

// FromAny converts plain Go data into a snapshot node. Maps with string keys
// are sorted by key.
func FromAny(v any) (*Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case *Node:
		if x == nil {
			return Null(), nil
		}
		return x, nil
	case bool:
		return FromBool(x), nil
	case string:
		return FromString(x), nil
	case int:
		return FromInt(int64(x)), nil
	case int8:
		return FromInt(int64(x)), nil
	case int16:
		return FromInt(int64(x)), nil
	case int32:
		return FromInt(int64(x)), nil
	case int64:
		return FromInt(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return FromInt(int64(x)), nil
	case uint16:
		return FromInt(int64(x)), nil
	case uint32:
		return FromInt(int64(x)), nil
	case uint64:
		return fromUint(x), nil
	case float32:
		return FromFloat(float64(x)), nil
	case float64:
		return FromFloat(x), nil
	case json.Number:
		return fromNumberString(string(x)), nil
	case []any:
		vals := make([]*Node, len(x))
		for i := range x {
			n, err := FromAny(x[i])
			if err != nil {
				return nil, err
			}
			vals[i] = n
		}
		return FromSlice(vals), nil
	case []*Node:
		return FromSlice(x), nil
	case map[string]any:
		m := make(map[string]*Node, len(x))
		for k, xv := range x {
			n, err := FromAny(xv)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return FromMap(m), nil
	case map[string]*Node:
		return FromMap(x), nil
	case []KeyVal:
		return FromKeyVals(x), nil
	default:
		if n, ok, err := fromYAMLValue(v); ok {
			return n, err
		}
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func fromUint(u uint64) *Node {
	if u > math.MaxInt64 {
		return FromFloat(float64(u))
	}
	return FromInt(int64(u))
}

func fromNumberString(s string) *Node {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromInt(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromFloat(f)
	}
	return &Node{Type: NumberType, Number: s}
}

// ToAny converts a snapshot into plain Go data: nil, bool, int64, float64,
// string, []any and map[string]any.
func ToAny(y *Node) any {
	if y == nil {
		return nil
	}
	switch y.Type {
	case NullType:
		return nil
	case BoolType:
		return y.Bool
	case StringType:
		return y.String
	case NumberType:
		return y.NumberValue()
	case ArrayType:
		res := make([]any, len(y.Values))
		for i, v := range y.Values {
			res[i] = ToAny(v)
		}
		return res
	case ObjectType:
		res := make(map[string]any, len(y.Fields))
		for i, f := range y.Fields {
			res[f] = ToAny(y.Values[i])
		}
		return res
	default:
		panic("type")
	}
}

// NumberValue returns the number as int64, float64, or, when neither can
// represent it, its literal string.
func (y *Node) NumberValue() any {
	switch {
	case y.Int64 != nil:
		return *y.Int64
	case y.Float64 != nil:
		return *y.Float64
	default:
		return y.Number
	}
}

// Scalar returns the Go value of a leaf node.
func (y *Node) Scalar() any {
	if !y.Type.IsLeaf() {
		panic("scalar of container")
	}
	return ToAny(y)
}
