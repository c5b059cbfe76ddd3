package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

type intOnly struct{}

func (intOnly) Validate(v any) error {
	if _, ok := v.(int64); !ok {
		return errors.New("not an integer")
	}
	return nil
}

func todoType() *ModelType {
	return &ModelType{
		Name: "Todo",
		Props: []Prop{
			{Name: "title", Default: func() any { return "" }},
			{Name: "tags", Kind: SetKind, Default: func() any { return []any{} }},
			{Name: "n", Type: intOnly{}, Default: func() any { return 0 }},
		},
	}
}

func TestModelSnapshot(t *testing.T) {
	a := NewArena(WithIDGenerator(counterIDs()))
	todo := todoType()
	m, err := todo.New(a, map[string]any{"title": "x", "tags": []any{"a", "a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"$modelType":"Todo","$modelId":"id-1","title":"x","tags":["a","b"],"n":0}`
	if diff := cmp.Diff(want, toJSON(t, m)); diff != "" {
		t.Error(diff)
	}
	if Inspect(m.Get("tags")) != SetKind {
		t.Error("tags is not a set")
	}
	if m.Get("$modelId") != "id-1" {
		t.Errorf("id prop reads %v", m.Get("$modelId"))
	}
	if err := m.Set("$modelId", "other"); !errors.Is(err, ErrImmutableID) {
		t.Errorf("id change: %v", err)
	}
	if err := m.Set("nope", 1); !errors.Is(err, ErrUnknownProp) {
		t.Errorf("unknown prop: %v", err)
	}
	if _, err := m.Delete("title"); !errors.Is(err, ErrKind) {
		t.Errorf("delete prop: %v", err)
	}

	back, err := a.FromSnapshot(GetSnapshot(m))
	if err != nil {
		t.Fatal(err)
	}
	bn := back.(*Node)
	if bn.ModelType() != todo || bn.ModelID() != "id-1" {
		t.Errorf("round trip gave %s %s", bn.ModelType().Name, bn.ModelID())
	}
	if Inspect(bn.Get("tags")) != SetKind {
		t.Error("round trip lost set kind")
	}
	if !ir.Equal(GetSnapshot(bn), GetSnapshot(m)) {
		t.Error("round trip snapshot differs")
	}
}

func TestModelIdentityKeysSurviveProcessors(t *testing.T) {
	strip := func(sn *ir.Node) *ir.Node {
		res := sn.ShallowCopy()
		res.Fields, res.Values = nil, nil
		for i, f := range sn.Fields {
			if f == "$modelId" || f == "secret" {
				continue
			}
			res.Fields = append(res.Fields, f)
			res.Values = append(res.Values, sn.Values[i])
		}
		return res
	}
	mt := &ModelType{
		Name:       "Box",
		Props:      []Prop{{Name: "secret"}, {Name: "v"}},
		ToSnapshot: Pipeline{strip},
	}
	a := NewArena(WithIDGenerator(counterIDs()), WithTypeKey("kind"))
	m, err := mt.New(a, map[string]any{"secret": "s", "v": 1})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"kind":"Box","$modelId":"id-1","v":1}`
	if diff := cmp.Diff(want, toJSON(t, m)); diff != "" {
		t.Error(diff)
	}
}

func TestModelProcessorPatches(t *testing.T) {
	rename := func(sn *ir.Node) *ir.Node {
		res := sn.ShallowCopy()
		if i := res.FieldIndex("v"); i != -1 {
			res.Fields[i] = "value"
		}
		return res
	}
	mt := &ModelType{Name: "Box", Props: []Prop{{Name: "v"}}, ToSnapshot: Pipeline{rename}}
	a := NewArena(WithIDGenerator(counterIDs()))
	m, err := mt.New(a, map[string]any{"v": 1})
	if err != nil {
		t.Fatal(err)
	}
	root := mustObject(t, a, KV{"box", m})
	before := GetSnapshot(root)
	rec := NewPatchRecorder(root)
	if err := m.Set("v", 2); err != nil {
		t.Fatal(err)
	}
	after := GetSnapshot(root)
	if diff := cmp.Diff(`{"box":{"$modelType":"Box","$modelId":"id-1","value":2}}`, string(must(ir.ToJSON(after)))); diff != "" {
		t.Fatal(diff)
	}
	if got := must(patch.Apply(before, rec.Patches()...)); !ir.Equal(got, after) {
		t.Errorf("replayed patches give %s", must(ir.ToJSON(got)))
	}
	if got := must(patch.Apply(after, rec.InversePatches()...)); !ir.Equal(got, before) {
		t.Errorf("inverse patches give %s", must(ir.ToJSON(got)))
	}
}

func TestPipelineOrder(t *testing.T) {
	tag := func(s string) Processor {
		return func(sn *ir.Node) *ir.Node {
			return ir.FromString(sn.String + s)
		}
	}
	p := Pipeline{tag("1"), tag("2"), tag("3")}
	if got := p.In(ir.FromString("")).String; got != "123" {
		t.Errorf("in: %q", got)
	}
	if got := p.Out(ir.FromString("")).String; got != "321" {
		t.Errorf("out: %q", got)
	}
}

func TestPropProcessors(t *testing.T) {
	mt := &ModelType{
		Name: "Temp",
		Props: []Prop{{
			Name: "c",
			// stored as a number, serialized as a string
			FromSnapshot: Pipeline{func(sn *ir.Node) *ir.Node {
				if sn.Type != ir.StringType {
					return sn
				}
				n, err := ir.FromJSON([]byte(sn.String))
				if err != nil {
					return sn
				}
				return n
			}},
			ToSnapshot: Pipeline{func(sn *ir.Node) *ir.Node {
				return ir.FromString(string(must(ir.ToJSON(sn))))
			}},
		}},
	}
	reg := NewRegistry()
	if err := reg.Register(mt); err != nil {
		t.Fatal(err)
	}
	a := NewArena(WithRegistry(reg), WithIDGenerator(counterIDs()))
	sn := must(ir.FromJSON([]byte(`{"$modelType":"Temp","$modelId":"t","c":"21"}`)))
	v, err := a.FromSnapshot(sn)
	if err != nil {
		t.Fatal(err)
	}
	m := v.(*Node)
	if m.Get("c") != int64(21) {
		t.Errorf("live value %#v", m.Get("c"))
	}
	if !ir.Equal(GetSnapshot(m), sn) {
		t.Errorf("snapshot %s", toJSON(t, m))
	}
}

func TestCheckAssignments(t *testing.T) {
	a := NewArena(WithCheckAssignments(true))
	m, err := todoType().New(a, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Set("n", "str"); err == nil {
		t.Error("invalid assignment accepted")
	}
	if m.Get("n") != int64(0) {
		t.Errorf("rejected assignment changed value to %v", m.Get("n"))
	}
	if err := m.Set("n", 2); err != nil {
		t.Error(err)
	}
	if _, err := todoType().New(NewArena(WithCheckAssignments(true)), map[string]any{"n": "x"}); err == nil {
		t.Error("invalid construction accepted")
	}
}

func TestValueTypeCopiedOnAttach(t *testing.T) {
	point := &ModelType{Name: "Point", ValueType: true, Props: []Prop{{Name: "x"}, {Name: "y"}}}
	a := NewArena(WithIDGenerator(counterIDs()))
	p, err := point.New(a, map[string]any{"x": 1, "y": 2})
	if err != nil {
		t.Fatal(err)
	}
	arr, err := a.NewArray(p, p)
	if err != nil {
		t.Fatal(err)
	}
	first, second := arr.At(0).(*Node), arr.At(1).(*Node)
	if first != p {
		t.Error("unattached value model was copied")
	}
	if second == p || second.ModelID() == p.ModelID() {
		t.Error("attached value model was not copied")
	}
	withoutID := func(n *Node) *ir.Node {
		sn := GetSnapshot(n).ShallowCopy()
		i := sn.FieldIndex("$modelId")
		sn.Fields = append(sn.Fields[:i], sn.Fields[i+1:]...)
		sn.Values = append(sn.Values[:i], sn.Values[i+1:]...)
		return sn
	}
	if !ir.Equal(withoutID(first), withoutID(second)) {
		t.Error("copy differs")
	}
	if p.Parent() != arr {
		t.Error("original moved")
	}
	if err := second.Set("x", 5); err != nil {
		t.Fatal(err)
	}
	if err := first.Set("y", 7); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"$modelType":"Point","$modelId":"id-1","x":1,"y":7},{"$modelType":"Point","$modelId":"id-2","x":5,"y":2}]`, toJSON(t, arr)); diff != "" {
		t.Errorf("copies not independent: %s", diff)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(todoType()); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(todoType()); !errors.Is(err, ErrDuplicateModel) {
		t.Errorf("duplicate: %v", err)
	}
	bad := &ModelType{Name: "Bad", Props: []Prop{{Name: "$modelId"}}}
	if err := reg.Register(bad); !errors.Is(err, ErrUnknownProp) {
		t.Errorf("id prop declared: %v", err)
	}
	a := NewArena(WithRegistry(reg))
	sn := must(ir.FromJSON([]byte(`{"$modelType":"Nope"}`)))
	if _, err := a.FromSnapshot(sn); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("unknown model: %v", err)
	}
	m, err := a.FromSnapshot(sn, FromKind(MapKind))
	if err != nil {
		t.Fatal(err)
	}
	if Inspect(m) != MapKind {
		t.Error("map hint ignored")
	}
}
