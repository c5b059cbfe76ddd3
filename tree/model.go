package tree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/signadot/treestate/ir"
)

// Validator checks a value assigned to a model property.
type Validator interface {
	Validate(v any) error
}

// Prop declares one property of a model type.
type Prop struct {
	Name string
	// Default returns the value of the property when a model is created
	// without one. A nil Default means null.
	Default func() any
	// Kind, when MapKind or SetKind, makes object and array snapshots of
	// the property come alive as maps and sets.
	Kind         Kind
	Type         Validator
	FromSnapshot Pipeline
	// ToSnapshot is applied to assignments of the prop itself. Patches for
	// changes further below it keep the unprocessed shape.
	ToSnapshot Pipeline
}

func (p *Prop) defaultValue() any {
	if p.Default == nil {
		return nil
	}
	return p.Default()
}

// ModelType describes a class of model nodes.
//
// A model is identified by its type name and its id, which is stored under
// IDProp and can not be changed once the model exists. Value type models are
// copied instead of moved when attached to a second location.
type ModelType struct {
	Name         string
	IDProp       string
	ValueType    bool
	Props        []Prop
	FromSnapshot Pipeline
	// ToSnapshot runs after the props' own processors. Prop assignments emit
	// the diff of the processed snapshots; deeper changes do not pass through it.
	ToSnapshot Pipeline

	propIndex map[string]int
}

// Prop returns the property named name, or nil.
func (mt *ModelType) Prop(name string) *Prop {
	i, ok := mt.propIndex[name]
	if !ok {
		return nil
	}
	return &mt.Props[i]
}

func (mt *ModelType) init() error {
	if mt.Name == "" {
		return fmt.Errorf("%w: empty model name", ErrUnknownModel)
	}
	if mt.IDProp == "" {
		mt.IDProp = DefaultIDProp
	}
	idx := make(map[string]int, len(mt.Props))
	for i := range mt.Props {
		p := &mt.Props[i]
		if p.Name == mt.IDProp {
			return fmt.Errorf("%w: %s declares its id property %q", ErrUnknownProp, mt.Name, p.Name)
		}
		if _, dup := idx[p.Name]; dup {
			return fmt.Errorf("%w: %s declares %q twice", ErrUnknownProp, mt.Name, p.Name)
		}
		idx[p.Name] = i
	}
	mt.propIndex = idx
	return nil
}

// New creates a model from live or raw property values. Missing properties
// take their defaults. An id may be given under the id property.
func (mt *ModelType) New(a *Arena, props map[string]any) (*Node, error) {
	if err := a.cfg.Registry.ensure(mt); err != nil {
		return nil, err
	}
	id := ""
	for _, k := range slices.Sorted(maps.Keys(props)) {
		if k == mt.IDProp {
			s, ok := props[k].(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s id %v is not a string", ErrUnsupportedValue, mt.Name, props[k])
			}
			id = s
			continue
		}
		if mt.Prop(k) == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProp, mt.Name, k)
		}
	}
	if id == "" {
		id = a.cfg.IDGenerator()
	}
	a.begin()
	defer a.end()
	n := a.newNode(ModelKind)
	n.model = mt
	n.modelID = id
	for i := range mt.Props {
		p := &mt.Props[i]
		v, ok := props[p.Name]
		if !ok {
			v = p.defaultValue()
		}
		lv, err := a.prepare(v, p.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", mt.Name, p.Name, err)
		}
		if err := a.validateProp(mt, p, lv); err != nil {
			return nil, err
		}
		lv, err = a.attach(n, ir.Field(p.Name), lv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", mt.Name, p.Name, err)
		}
		n.fields[p.Name] = lv
	}
	return n, nil
}

func (a *Arena) validateProp(mt *ModelType, p *Prop, v any) error {
	if !a.cfg.CheckAssignments || p.Type == nil {
		return nil
	}
	if err := p.Type.Validate(v); err != nil {
		return fmt.Errorf("%s.%s: %w", mt.Name, p.Name, err)
	}
	return nil
}

// Registry maps type names to model types.
type Registry struct {
	types map[string]*ModelType
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*ModelType{}}
}

// Register adds model types. A name may only be registered once.
func (r *Registry) Register(mts ...*ModelType) error {
	for _, mt := range mts {
		if _, ok := r.types[mt.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, mt.Name)
		}
		if err := mt.init(); err != nil {
			return err
		}
		r.types[mt.Name] = mt
	}
	return nil
}

func (r *Registry) ensure(mt *ModelType) error {
	cur, ok := r.types[mt.Name]
	if !ok {
		return r.Register(mt)
	}
	if cur != mt {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, mt.Name)
	}
	return nil
}

func (r *Registry) Lookup(name string) *ModelType {
	return r.types[name]
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*ModelType {
	res := make([]*ModelType, 0, len(r.types))
	for _, k := range slices.Sorted(maps.Keys(r.types)) {
		res = append(res, r.types[k])
	}
	return res
}
