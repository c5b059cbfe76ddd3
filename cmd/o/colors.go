package main

import (
	"bytes"
	"encoding/json"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"

	"github.com/fatih/color"
)

type Colors struct {
	Default func(a ...any) string
	Field   func(a ...any) string
	Sep     func(a ...any) string
	Types   map[ir.Type]func(a ...any) string
	Ops     map[patch.Op]func(a ...any) string
}

func NewColors() *Colors {
	return &Colors{
		Default: color.New(color.Reset).SprintFunc(),
		Field:   color.RGB(128, 168, 196).SprintFunc(),
		Sep:     color.RGB(196, 128, 128).SprintFunc(),
		Types: map[ir.Type]func(a ...any) string{
			ir.NullType:   color.RGB(168, 0, 196).SprintFunc(),
			ir.BoolType:   color.New(color.FgCyan).SprintFunc(),
			ir.NumberType: color.RGB(128, 216, 236).SprintFunc(),
			ir.StringType: color.RGB(8, 196, 16).SprintFunc(),
		},
		Ops: map[patch.Op]func(a ...any) string{
			patch.Add:     color.New(color.FgGreen).SprintFunc(),
			patch.Replace: color.New(color.FgYellow).SprintFunc(),
			patch.Remove:  color.New(color.FgRed).SprintFunc(),
		},
	}
}

func (c *Colors) Op(op patch.Op, s string) string {
	if f := c.Ops[op]; f != nil {
		return f(s)
	}
	return c.Default(s)
}

func (c *Colors) leaf(y *ir.Node) (string, error) {
	d, err := ir.ToJSON(y)
	if err != nil {
		return "", err
	}
	if f := c.Types[y.Type]; f != nil {
		return f(string(d)), nil
	}
	return c.Default(string(d)), nil
}

func (c *Colors) writeJSON(buf *bytes.Buffer, y *ir.Node, indent string) error {
	if y.Type.IsLeaf() {
		s, err := c.leaf(y)
		if err != nil {
			return err
		}
		buf.WriteString(s)
		return nil
	}
	start, end := "[", "]"
	if y.Type == ir.ObjectType {
		start, end = "{", "}"
	}
	if len(y.Values) == 0 {
		buf.WriteString(c.Sep(start + end))
		return nil
	}
	inner := indent + "  "
	buf.WriteString(c.Sep(start))
	buf.WriteByte('\n')
	for i, v := range y.Values {
		buf.WriteString(inner)
		if y.Type == ir.ObjectType {
			k, err := json.Marshal(y.Fields[i])
			if err != nil {
				return err
			}
			buf.WriteString(c.Field(string(k)))
			buf.WriteString(c.Sep(":") + " ")
		}
		if err := c.writeJSON(buf, v, inner); err != nil {
			return err
		}
		if i < len(y.Values)-1 {
			buf.WriteString(c.Sep(","))
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(indent)
	buf.WriteString(c.Sep(end))
	return nil
}
