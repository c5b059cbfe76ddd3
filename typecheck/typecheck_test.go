package typecheck

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
)

func tweak(t *testing.T, a *tree.Arena, raw any) any {
	t.Helper()
	v, err := a.Tweak(raw)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestPrimitives(t *testing.T) {
	cases := []struct {
		c    *Checker
		ok   []any
		fail []any
	}{
		{String(), []any{"", "x"}, []any{1, nil}},
		{Number(), []any{int64(1), 1.5}, []any{"1", true}},
		{Integer(), []any{int64(1), 2.0}, []any{2.5}},
		{Bool(), []any{true}, []any{"true"}},
		{Null(), []any{nil}, []any{0}},
		{Literal("a"), []any{"a"}, []any{"b"}},
		{Literal(1), []any{int64(1), 1.0}, []any{int64(2)}},
		{Maybe(String()), []any{nil, "s"}, []any{1.0}},
		{Or(String(), Bool()), []any{"s", false}, []any{nil}},
		{Unchecked(), []any{nil, "x", 1.0}, nil},
	}
	for _, c := range cases {
		for _, v := range c.ok {
			if e := c.c.Check(v, nil); e != nil {
				t.Errorf("%s rejected %v: %v", c.c.Name(), v, e)
			}
		}
		for _, v := range c.fail {
			if e := c.c.Check(v, nil); e == nil {
				t.Errorf("%s accepted %v", c.c.Name(), v)
			}
		}
	}
}

func TestErrorPaths(t *testing.T) {
	a := tree.NewArena()
	arr := tweak(t, a, []any{"a", 1})
	c := ArrayOf(String())
	e := c.Check(arr, ir.PathOf("x"))
	if e == nil {
		t.Fatal("accepted")
	}
	if diff := cmp.Diff("x[1]: expected string, got 1", e.Error()); diff != "" {
		t.Error(diff)
	}
	if e := c.Check(arr, ir.PathOf("y")); e == nil || e.Path.String() != "y[1]" {
		t.Errorf("cached result path: %v", e)
	}
	if c.Check(arr, nil) != c.Check(arr, nil) {
		t.Error("result not cached")
	}
	if err := arr.(*tree.Node).SetAt(1, "b"); err != nil {
		t.Fatal(err)
	}
	if e := c.Check(arr, nil); e != nil {
		t.Errorf("stale result after fix: %v", e)
	}
}

func TestContainers(t *testing.T) {
	a := tree.NewArena()
	obj := tweak(t, a, map[string]any{"title": "t", "tags": []any{"x"}, "n": 1})
	shape := Object(
		Field{Name: "title", Type: String()},
		Field{Name: "tags", Type: ArrayOf(String())},
		Field{Name: "missing", Type: Maybe(Number())},
	)
	if e := shape.Check(obj, nil); e != nil {
		t.Error(e)
	}
	strict := Object(Field{Name: "n", Type: String()})
	if e := strict.Check(obj, nil); e == nil || e.Path.String() != "n" {
		t.Errorf("got %v", e)
	}
	if e := Record(Unchecked()).Check(obj, nil); e != nil {
		t.Error(e)
	}
	m, err := a.NewMap(tree.KV{Key: "k", Value: 1})
	if err != nil {
		t.Fatal(err)
	}
	if e := MapOf(Number()).Check(m, nil); e != nil {
		t.Error(e)
	}
	if e := Record(Number()).Check(m, nil); e == nil {
		t.Error("map accepted as record")
	}
	s, err := a.NewSet("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if e := SetOf(Literal("a")).Check(s, nil); e == nil || e.Path.String() != "[1]" {
		t.Errorf("set: %v", e)
	}
	tup := tweak(t, a, []any{"a", 1})
	if e := Tuple(String(), Number()).Check(tup, nil); e != nil {
		t.Error(e)
	}
	if e := Tuple(String()).Check(tup, nil); e == nil {
		t.Error("tuple length not checked")
	}
}

func TestLate(t *testing.T) {
	var node *Checker
	node = Late(func() *Checker {
		return Object(
			Field{Name: "v", Type: Number()},
			Field{Name: "kids", Type: ArrayOf(node)},
		)
	})
	a := tree.NewArena()
	v := tweak(t, a, map[string]any{
		"v":    1,
		"kids": []any{map[string]any{"v": "x", "kids": []any{}}},
	})
	e := node.Check(v, nil)
	if e == nil {
		t.Fatal("accepted")
	}
	if diff := cmp.Diff("kids[0].v", e.Path.String()); diff != "" {
		t.Error(diff)
	}
}

func TestRefinement(t *testing.T) {
	pos, err := Refinement(Number(), "positive", "value > 0")
	if err != nil {
		t.Fatal(err)
	}
	if e := pos.Check(int64(3), nil); e != nil {
		t.Error(e)
	}
	if e := pos.Check(int64(-1), nil); e == nil || e.Expected != "positive" {
		t.Errorf("got %v", e)
	}
	if e := pos.Check("s", nil); e == nil || e.Expected != "number" {
		t.Errorf("base not checked first: %v", e)
	}
	nonEmpty, err := Refinement(Record(String()), "non-empty", "len(value) > 0")
	if err != nil {
		t.Fatal(err)
	}
	a := tree.NewArena()
	obj := tweak(t, a, map[string]any{})
	if e := nonEmpty.Check(obj, nil); e == nil {
		t.Error("empty object accepted")
	}
	if err := obj.(*tree.Node).Set("a", "b"); err != nil {
		t.Fatal(err)
	}
	if e := nonEmpty.Check(obj, nil); e != nil {
		t.Error(e)
	}
	if _, err := Refinement(Number(), "bad", "value >"); !errors.Is(err, ErrExpr) {
		t.Errorf("bad expression: %v", err)
	}
}

func TestModelAssignments(t *testing.T) {
	mt := &tree.ModelType{
		Name:  "Counter",
		Props: []tree.Prop{{Name: "n", Type: Integer(), Default: func() any { return 0 }}},
	}
	other := &tree.ModelType{Name: "Other"}
	a := tree.NewArena(tree.WithCheckAssignments(true))
	m, err := mt.New(a, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = m.Set("n", 1.5)
	var te *Error
	if !errors.As(err, &te) || te.Expected != "integer" {
		t.Errorf("got %v", err)
	}
	if e := Model(mt).Check(m, nil); e != nil {
		t.Error(e)
	}
	o, err := other.New(a, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e := Model(mt).Check(o, nil); e == nil {
		t.Error("other model accepted")
	}
}

func TestRawValues(t *testing.T) {
	cases := []struct {
		c    *Checker
		v    any
		want string
	}{
		{ArrayOf(String()), []any{"a"}, `["a"]`},
		{Record(Number()), map[string]any{"a": 1}, `{"a":1}`},
		{Literal("x"), []any{1}, `[1]`},
		{String(), struct{}{}, `"struct {}"`},
	}
	for _, c := range cases {
		e := c.c.Check(c.v, nil)
		if e == nil {
			t.Errorf("%s accepted raw %#v", c.c.Name(), c.v)
			continue
		}
		if diff := cmp.Diff(c.want, string(must(ir.ToJSON(e.Value)))); diff != "" {
			t.Errorf("%s: %s", c.c.Name(), diff)
		}
	}
	pos, err := Refinement(Unchecked(), "non-empty", "len(value) > 0")
	if err != nil {
		t.Fatal(err)
	}
	if e := pos.Check([]any{1}, nil); e != nil {
		t.Error(e)
	}
}

func TestDeepMutationFlipsCachedResult(t *testing.T) {
	items := Object(Field{Name: "items", Type: ArrayOf(String())})
	c := Maybe(items)
	a := tree.NewArena()
	root := tweak(t, a, map[string]any{"items": []any{"a", "b"}}).(*tree.Node)
	if e := c.Check(root, nil); e != nil {
		t.Fatal(e)
	}
	arr := root.Get("items").(*tree.Node)
	if err := arr.SetAt(1, 2); err != nil {
		t.Fatal(err)
	}
	if e := c.Check(root, nil); e == nil {
		t.Error("cached result survived a nested mutation")
	}
	e := items.Check(root, nil)
	if e == nil {
		t.Fatal("accepted")
	}
	if diff := cmp.Diff("items[1]", e.Path.String()); diff != "" {
		t.Error(diff)
	}
	if err := arr.SetAt(1, "c"); err != nil {
		t.Fatal(err)
	}
	if e := c.Check(root, nil); e != nil {
		t.Errorf("stale failure: %v", e)
	}
}

func TestTwoCheckersInvalidated(t *testing.T) {
	strs := Record(String())
	small, err := Refinement(Record(Unchecked()), "small", "len(value) < 2")
	if err != nil {
		t.Fatal(err)
	}
	a := tree.NewArena()
	obj := tweak(t, a, map[string]any{"a": "x"}).(*tree.Node)
	for _, c := range []*Checker{strs, small} {
		if e := c.Check(obj, nil); e != nil {
			t.Fatal(e)
		}
		if _, ok := a.Memo(obj, memoKey{c}); !ok {
			t.Errorf("%s: result not cached", c.Name())
		}
	}
	if err := obj.Set("b", 1); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*Checker{strs, small} {
		if _, ok := a.Memo(obj, memoKey{c}); ok {
			t.Errorf("%s: cached result survived mutation", c.Name())
		}
		if e := c.Check(obj, nil); e == nil {
			t.Errorf("%s: accepted after mutation", c.Name())
		}
	}
}

func TestCacheHitSkipsCheck(t *testing.T) {
	calls := 0
	counted := newChecker("counted", func(any) *Error {
		calls++
		return nil
	})
	hasA, err := Refinement(counted, "has a", `"a" in value`)
	if err != nil {
		t.Fatal(err)
	}
	a := tree.NewArena()
	obj := tweak(t, a, map[string]any{"a": 1}).(*tree.Node)
	other := tweak(t, a, map[string]any{"z": 1}).(*tree.Node)
	for range 3 {
		if e := hasA.Check(obj, nil); e != nil {
			t.Fatal(e)
		}
	}
	if calls != 1 {
		t.Errorf("unchanged node checked %d times", calls)
	}
	if err := other.Set("y", 2); err != nil {
		t.Fatal(err)
	}
	if e := hasA.Check(obj, nil); e != nil || calls != 1 {
		t.Errorf("unrelated mutation rechecked: %v, %d calls", e, calls)
	}
	if err := obj.Set("b", 2); err != nil {
		t.Fatal(err)
	}
	if e := hasA.Check(obj, nil); e != nil {
		t.Fatal(e)
	}
	if calls != 2 {
		t.Errorf("mutated node checked %d times in total", calls)
	}
	if _, err := obj.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if e := hasA.Check(obj, nil); e == nil || e.Expected != "has a" {
		t.Errorf("got %v", e)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
