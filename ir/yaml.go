package ir

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// FromYAML decodes a YAML document keeping mapping order.
func FromYAML(d []byte) (*Node, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(d, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return FromAny(v)
}

// ToYAML encodes y as YAML keeping object field order.
func ToYAML(y *Node) ([]byte, error) {
	return yaml.Marshal(toYAMLValue(y))
}

func toYAMLValue(y *Node) any {
	switch y.Type {
	case ObjectType:
		ms := make(yaml.MapSlice, len(y.Fields))
		for i, f := range y.Fields {
			ms[i] = yaml.MapItem{Key: f, Value: toYAMLValue(y.Values[i])}
		}
		return ms
	case ArrayType:
		res := make([]any, len(y.Values))
		for i, v := range y.Values {
			res[i] = toYAMLValue(v)
		}
		return res
	default:
		return ToAny(y)
	}
}

func fromYAMLValue(v any) (*Node, bool, error) {
	switch x := v.(type) {
	case yaml.MapSlice:
		kvs := make([]KeyVal, len(x))
		for i, item := range x {
			n, err := FromAny(item.Value)
			if err != nil {
				return nil, true, err
			}
			kvs[i] = KeyVal{Key: fmt.Sprint(item.Key), Val: n}
		}
		return FromKeyVals(kvs), true, nil
	case map[any]any:
		m := make(map[string]*Node, len(x))
		for k, xv := range x {
			n, err := FromAny(xv)
			if err != nil {
				return nil, true, err
			}
			m[fmt.Sprint(k)] = n
		}
		return FromMap(m), true, nil
	}
	return nil, false, nil
}
