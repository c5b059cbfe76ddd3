package main

import (
	"fmt"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
	"github.com/signadot/treestate/typecheck"

	"github.com/scott-cotton/cli"
)

// modelFile is the document read with -models:
//
//	typeKey: kind
//	models:
//	- name: Todo
//	  idProp: id
//	  props:
//	  - name: title
//	    type: string
//	    default: ""
//	  - name: prio
//	    type: integer
//	    check: value >= 0 && value <= 5
//	  - name: tags
//	    kind: set
type modelFile struct {
	TypeKey string      `json:"typeKey"`
	Models  []modelSpec `json:"models"`
}

type modelSpec struct {
	Name      string     `json:"name"`
	IDProp    string     `json:"idProp"`
	ValueType bool       `json:"valueType"`
	Props     []propSpec `json:"props"`
}

type propSpec struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Type    string `json:"type"`
	Check   string `json:"check"`
	Default any    `json:"default"`
}

func (p *propSpec) kind() (tree.Kind, error) {
	switch p.Kind {
	case "":
		return 0, nil
	case "map":
		return tree.MapKind, nil
	case "set":
		return tree.SetKind, nil
	}
	return 0, fmt.Errorf("prop %s: unknown kind %q", p.Name, p.Kind)
}

func (p *propSpec) checker(kind tree.Kind) (*typecheck.Checker, error) {
	var c *typecheck.Checker
	switch p.Type {
	case "", "any":
		c = typecheck.Unchecked()
	case "string":
		c = typecheck.String()
	case "number":
		c = typecheck.Number()
	case "integer":
		c = typecheck.Integer()
	case "bool":
		c = typecheck.Bool()
	case "array":
		c = typecheck.ArrayOf(typecheck.Unchecked())
	case "object":
		switch kind {
		case tree.MapKind:
			c = typecheck.MapOf(typecheck.Unchecked())
		default:
			c = typecheck.Record(typecheck.Unchecked())
		}
	default:
		return nil, fmt.Errorf("prop %s: unknown type %q", p.Name, p.Type)
	}
	if p.Check == "" {
		return c, nil
	}
	return typecheck.Refinement(c, p.Type+" where "+p.Check, p.Check)
}

func (p *propSpec) prop() (tree.Prop, error) {
	kind, err := p.kind()
	if err != nil {
		return tree.Prop{}, err
	}
	c, err := p.checker(kind)
	if err != nil {
		return tree.Prop{}, err
	}
	res := tree.Prop{Name: p.Name, Kind: kind, Type: c}
	if p.Default != nil {
		def, err := ir.FromAny(p.Default)
		if err != nil {
			return tree.Prop{}, fmt.Errorf("prop %s default: %w", p.Name, err)
		}
		res.Default = func() any { return def }
	}
	return res, nil
}

func (m *modelFile) registry() (*tree.Registry, error) {
	reg := tree.NewRegistry()
	for i := range m.Models {
		spec := &m.Models[i]
		mt := &tree.ModelType{Name: spec.Name, IDProp: spec.IDProp, ValueType: spec.ValueType}
		for j := range spec.Props {
			p, err := spec.Props[j].prop()
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", spec.Name, err)
			}
			mt.Props = append(mt.Props, p)
		}
		if err := reg.Register(mt); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// newArena returns an arena knowing the models of -models, if given.
func (cfg *MainConfig) newArena(cc *cli.Context) (*tree.Arena, error) {
	if cfg.Models == "" {
		return tree.NewArena(), nil
	}
	y, err := getObjFile(cc, cfg.Models, YAMLFormat)
	if err != nil {
		return nil, fmt.Errorf("error reading models: %w", err)
	}
	mf := &modelFile{}
	if err := ir.Decode(y, mf); err != nil {
		return nil, fmt.Errorf("error decoding models: %w", err)
	}
	reg, err := mf.registry()
	if err != nil {
		return nil, err
	}
	opts := []tree.Option{tree.WithRegistry(reg), tree.WithCheckAssignments(true)}
	if mf.TypeKey != "" {
		opts = append(opts, tree.WithTypeKey(mf.TypeKey))
	}
	return tree.NewArena(opts...), nil
}
