package tree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

func counterIDs() func() string {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("id-%d", i)
	}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	d, err := ir.ToJSON(GetSnapshot(v))
	if err != nil {
		t.Fatal(err)
	}
	return string(d)
}

func mustObject(t *testing.T, a *Arena, kvs ...KV) *Node {
	t.Helper()
	n, err := a.NewObject(kvs...)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func patchStrings(ps []patch.Patch) []string {
	res := make([]string, len(ps))
	for i, p := range ps {
		res[i] = p.String()
	}
	return res
}

func TestSnapshotCache(t *testing.T) {
	a := NewArena()
	inner := mustObject(t, a, KV{"x", 1})
	root := mustObject(t, a, KV{"a", inner}, KV{"b", []any{1, 2}})

	s1 := GetSnapshot(root)
	if s2 := GetSnapshot(root); s1 != s2 {
		t.Fatal("repeated snapshot without mutation is not identical")
	}
	b := root.Get("b").(*Node)
	bs := GetSnapshot(b)
	if ir.Get(s1, "b") != bs {
		t.Error("child snapshot not shared with parent snapshot")
	}
	if err := inner.Set("x", 2); err != nil {
		t.Fatal(err)
	}
	s3 := GetSnapshot(root)
	if s3 == s1 {
		t.Error("root snapshot not invalidated")
	}
	if ir.Get(s3, "b") != bs {
		t.Error("untouched sibling snapshot was reallocated")
	}
	if ir.Get(s3, "a") == ir.Get(s1, "a") {
		t.Error("mutated child snapshot not reallocated")
	}
	if diff := cmp.Diff(`{"a":{"x":2},"b":[1,2]}`, toJSON(t, root)); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(`{"a":{"x":1},"b":[1,2]}`, string(must(ir.ToJSON(s1)))); diff != "" {
		t.Errorf("old snapshot changed: %s", diff)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestInvalidationLocality(t *testing.T) {
	a := NewArena()
	left := mustObject(t, a, KV{"v", 1})
	right := mustObject(t, a, KV{"v", 2})
	root := mustObject(t, a, KV{"l", left}, KV{"r", right})
	lv, rv, rootv := left.Version(), right.Version(), root.Version()
	if err := left.Set("v", 3); err != nil {
		t.Fatal(err)
	}
	if left.Version() == lv || root.Version() == rootv {
		t.Error("mutated path not invalidated")
	}
	if right.Version() != rv {
		t.Error("sibling invalidated")
	}
}

func TestPatchReplay(t *testing.T) {
	a := NewArena()
	root := mustObject(t, a,
		KV{"items", []any{"a", "b", "c"}},
		KV{"m", map[string]any{"k": 1}},
	)
	before := GetSnapshot(root)
	rec := NewPatchRecorder(root)
	items := root.Get("items").(*Node)

	steps := []func() error{
		func() error { _, err := items.Splice(1, 1, "x", "y"); return err },
		func() error { return items.Push("z") },
		func() error { return items.SetAt(0, "A") },
		func() error { return root.Set("n", 5) },
		func() error { _, err := root.Delete("m"); return err },
		func() error { return items.Truncate(2) },
		func() error { _, err := items.Pop(); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	after := GetSnapshot(root)
	if diff := cmp.Diff(`{"items":["A"],"n":5}`, string(must(ir.ToJSON(after)))); diff != "" {
		t.Fatal(diff)
	}
	got, err := patch.Apply(before, rec.Patches()...)
	if err != nil {
		t.Fatal(err)
	}
	if !ir.Equal(got, after) {
		t.Errorf("replayed patches give %s", must(ir.ToJSON(got)))
	}
	undone, err := patch.Apply(after, rec.InversePatches()...)
	if err != nil {
		t.Fatal(err)
	}
	if !ir.Equal(undone, before) {
		t.Errorf("inverse patches give %s", must(ir.ToJSON(undone)))
	}
	d, err := patch.ApplyJSON(must(ir.ToJSON(before)), rec.Patches())
	if err != nil {
		t.Fatal(err)
	}
	if !ir.Equal(must(ir.FromJSON(d)), after) {
		t.Errorf("json patch gives %s", d)
	}
}

func TestSplicePatches(t *testing.T) {
	a := NewArena()
	arr := must(a.NewArray(1, 2, 3, 4))
	rec := NewPatchRecorder(arr)
	if _, err := arr.Splice(1, 3, 9); err != nil {
		t.Fatal(err)
	}
	want := []string{"replace [1] = 9", "remove [2]", "remove [2]"}
	if diff := cmp.Diff(want, patchStrings(rec.Patches())); diff != "" {
		t.Error(diff)
	}
	rec.Reset()
	if _, err := arr.Splice(0, 1, 7, 8); err != nil {
		t.Fatal(err)
	}
	want = []string{"replace [0] = 7", "add [1] = 8"}
	if diff := cmp.Diff(want, patchStrings(rec.Patches())); diff != "" {
		t.Error(diff)
	}
}

func TestListenerPaths(t *testing.T) {
	a := NewArena()
	leaf := mustObject(t, a, KV{"v", 1})
	mid := must(a.NewArray(leaf))
	root := mustObject(t, a, KV{"list", mid})
	var rootPaths, midPaths []string
	root.OnPatches(func(ev PatchEvent) {
		for _, p := range ev.Patches {
			rootPaths = append(rootPaths, p.Path.String())
		}
	})
	dispose := mid.OnPatches(func(ev PatchEvent) {
		for _, p := range ev.Patches {
			midPaths = append(midPaths, p.Path.String())
		}
	})
	if err := leaf.Set("v", 2); err != nil {
		t.Fatal(err)
	}
	dispose()
	if err := leaf.Set("v", 3); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"list[0].v", "list[0].v"}, rootPaths); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]string{"[0].v"}, midPaths); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff("list[0]", leaf.Path().String()); diff != "" {
		t.Error(diff)
	}
	v, err := a.Resolve(root, ir.PathOf("list", 0, "v"))
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(3) {
		t.Errorf("resolve gave %v", v)
	}
}

func TestSwapMovesNode(t *testing.T) {
	a := NewArena()
	child := mustObject(t, a, KV{"v", 1})
	root := mustObject(t, a, KV{"left", child}, KV{"right", nil})
	rec := NewPatchRecorder(root)
	if err := root.Set("right", child); err != nil {
		t.Fatal(err)
	}
	if child.Parent() != root {
		t.Fatal("moved node lost its parent")
	}
	if k, _ := child.ParentKey(); k != ir.Field("right") {
		t.Errorf("parent key %v", k)
	}
	if root.Get("left") != nil {
		t.Error("old slot not nulled")
	}
	want := []string{`replace left = null`, `replace right = {"v":1}`}
	if diff := cmp.Diff(want, patchStrings(rec.Patches())); diff != "" {
		t.Error(diff)
	}
}

func TestSwapInArray(t *testing.T) {
	a := NewArena()
	x := mustObject(t, a, KV{"n", "x"})
	y := mustObject(t, a, KV{"n", "y"})
	arr := must(a.NewArray(x, y))
	if err := arr.SetAt(0, y); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"n":"y"},null]`, toJSON(t, arr)); diff != "" {
		t.Error(diff)
	}
	if x.Parent() != nil || !x.IsRoot() {
		t.Error("replaced node still attached")
	}
	if k, _ := y.ParentKey(); k != ir.Index(0) {
		t.Errorf("parent key %v", k)
	}
}

func TestSpliceMoveWithinArray(t *testing.T) {
	a := NewArena()
	x := mustObject(t, a, KV{"n", 1})
	y := mustObject(t, a, KV{"n", 2})
	arr := must(a.NewArray(x, y))
	removed, err := arr.Splice(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := arr.Push(removed...); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[{"n":2},{"n":1}]`, toJSON(t, arr)); diff != "" {
		t.Error(diff)
	}
	if k, _ := x.ParentKey(); k != ir.Index(1) {
		t.Errorf("x key %v", k)
	}
	if k, _ := y.ParentKey(); k != ir.Index(0) {
		t.Errorf("y key %v", k)
	}
}

func TestSpliceInChildOfRemoved(t *testing.T) {
	a := NewArena()
	inner := mustObject(t, a, KV{"y", 1})
	outer := mustObject(t, a, KV{"c", inner})
	arr := must(a.NewArray(outer))
	before := GetSnapshot(arr)
	rec := NewPatchRecorder(arr)
	if _, err := arr.Splice(0, 1, inner); err != nil {
		t.Fatal(err)
	}
	after := GetSnapshot(arr)
	if diff := cmp.Diff(`[{"y":1}]`, string(must(ir.ToJSON(after)))); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(`{"c":null}`, toJSON(t, outer)); diff != "" {
		t.Error(diff)
	}
	got := must(patch.Apply(before, rec.Patches()...))
	if !ir.Equal(got, after) {
		t.Errorf("replayed patches give %s", must(ir.ToJSON(got)))
	}
	undone := must(patch.Apply(after, rec.InversePatches()...))
	if diff := cmp.Diff(`[{"c":{"y":1}}]`, string(must(ir.ToJSON(undone)))); diff != "" {
		t.Errorf("inverse patches: %s", diff)
	}
}

func TestSpliceVetoKeepsParents(t *testing.T) {
	a := NewArena()
	old := mustObject(t, a, KV{"v", 1})
	moved := mustObject(t, a, KV{"v", 2})
	other := mustObject(t, a, KV{"m", moved})
	arr := must(a.NewArray(old))
	veto := errors.New("veto")
	other.Intercept(func(c *Change) (*Change, error) { return c, veto })
	if _, err := arr.Splice(0, 1, moved); !errors.Is(err, veto) {
		t.Fatalf("got %v", err)
	}
	if arr.At(0) != old || old.Parent() != arr {
		t.Error("removed item lost its parent after a failed splice")
	}
	if k, _ := old.ParentKey(); k != ir.Index(0) {
		t.Errorf("old key %v", k)
	}
	if moved.Parent() != other {
		t.Error("vetoed move changed the parent")
	}
	if diff := cmp.Diff(`[{"v":1}]`, toJSON(t, arr)); diff != "" {
		t.Error(diff)
	}
}

func TestCycle(t *testing.T) {
	a := NewArena()
	child := mustObject(t, a)
	root := mustObject(t, a, KV{"c", child})
	if err := root.Set("self", root); !errors.Is(err, ErrCycle) {
		t.Errorf("self: got %v", err)
	}
	if err := child.Set("up", root); !errors.Is(err, ErrCycle) {
		t.Errorf("ancestor: got %v", err)
	}
	if child.Has("up") {
		t.Error("failed assignment left a key")
	}
}

func TestSets(t *testing.T) {
	a := NewArena()
	s := must(a.NewSet("a", "b", "a"))
	if s.Len() != 2 {
		t.Fatalf("len %d", s.Len())
	}
	added, err := s.Add("b")
	if err != nil || added {
		t.Errorf("re-adding: %v %v", added, err)
	}
	rec := NewPatchRecorder(s)
	if _, err := s.Add(int64(3)); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Remove("a"); err != nil || !ok {
		t.Fatalf("remove: %v %v", ok, err)
	}
	if !s.Contains(3) {
		t.Error("int 3 not found as int64")
	}
	want := []string{"add [2] = 3", "remove [0]"}
	if diff := cmp.Diff(want, patchStrings(rec.Patches())); diff != "" {
		t.Error(diff)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`[]`, toJSON(t, s)); diff != "" {
		t.Error(diff)
	}
}

func TestMaps(t *testing.T) {
	a := NewArena()
	m := must(a.NewMap(KV{"z", 1}, KV{"a", 2}))
	if err := m.MapSet("m", 3); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`{"z":1,"a":2,"m":3}`, toJSON(t, m)); diff != "" {
		t.Error(diff)
	}
	if ok, err := m.MapDelete("z"); !ok || err != nil {
		t.Errorf("delete: %v %v", ok, err)
	}
	if err := m.MapClear(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("len after clear %d", m.Len())
	}
	obj := mustObject(t, a)
	if err := obj.MapSet("x", 1); !errors.Is(err, ErrKind) {
		t.Errorf("map op on object: %v", err)
	}
}

func TestInterceptors(t *testing.T) {
	a := NewArena()
	obj := mustObject(t, a, KV{"n", 1})
	veto := errors.New("veto")
	dispose := obj.Intercept(func(c *Change) (*Change, error) {
		if c.Type == ChangeSet && c.Key == "n" {
			if v, ok := c.NewValue.(int); ok && v < 0 {
				return c, veto
			}
			c.NewValue = fmt.Sprint(c.NewValue)
		}
		return c, nil
	})
	rec := NewPatchRecorder(obj)
	if err := obj.Set("n", -1); !errors.Is(err, veto) {
		t.Errorf("veto: got %v", err)
	}
	if len(rec.Patches()) != 0 {
		t.Error("vetoed change emitted patches")
	}
	if err := obj.Set("n", 5); err != nil {
		t.Fatal(err)
	}
	if obj.Get("n") != "5" {
		t.Errorf("rewritten value %v", obj.Get("n"))
	}
	dispose()
	if err := obj.Set("n", 6); err != nil {
		t.Fatal(err)
	}
	if obj.Get("n") != int64(6) {
		t.Errorf("after dispose %v", obj.Get("n"))
	}
}

func TestReactionsRunAtTurnEnd(t *testing.T) {
	a := NewArena()
	obj := mustObject(t, a, KV{"n", 1})
	var seen []any
	r := a.Runtime().Autorun(func() {
		seen = append(seen, obj.Get("n"))
	})
	defer r.Dispose()
	if err := obj.Set("n", 2); err != nil {
		t.Fatal(err)
	}
	err := a.Batch(func() error {
		if err := obj.Set("n", 3); err != nil {
			return err
		}
		return obj.Set("n", 4)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(1), int64(2), int64(4)}, seen); diff != "" {
		t.Error(diff)
	}
}

func TestReleaseDetached(t *testing.T) {
	a := NewArena()
	child := mustObject(t, a, KV{"v", 1})
	kept := mustObject(t, a, KV{"v", 2})
	root := mustObject(t, a, KV{"c", child}, KV{"k", kept})
	childSnap := ir.Get(GetSnapshot(root), "c")
	a.SetMemo(child, "x", 1)
	var released []NodeID
	a.cfg.Hooks.OnRelease = func(n *Node) { released = append(released, n.ID()) }
	if _, err := root.Delete("c"); err != nil {
		t.Fatal(err)
	}
	if GetSnapshot(child) != childSnap {
		t.Error("detaching reallocated the snapshot of an unchanged node")
	}
	if _, ok := a.Memo(child, "x"); ok {
		t.Error("memo of a released node survived")
	}
	err := a.Batch(func() error {
		if _, err := root.Delete("k"); err != nil {
			return err
		}
		return root.Set("k2", kept)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]NodeID{child.ID()}, released); diff != "" {
		t.Error(diff)
	}
	if _, ok := a.Memo(kept, "x"); ok {
		t.Error("unexpected memo")
	}
	if diff := cmp.Diff(`{"k2":{"v":2}}`, toJSON(t, root)); diff != "" {
		t.Error(diff)
	}
}

func TestMemoCleared(t *testing.T) {
	a := NewArena()
	leaf := mustObject(t, a, KV{"v", 1})
	root := mustObject(t, a, KV{"leaf", leaf})
	other := mustObject(t, a)
	a.SetMemo(root, "k", 1)
	a.SetMemo(other, "k", 2)
	if err := leaf.Set("v", 2); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Memo(root, "k"); ok {
		t.Error("ancestor memo survived mutation")
	}
	if v, ok := a.Memo(other, "k"); !ok || v != 2 {
		t.Error("unrelated memo cleared")
	}
}

func TestTweakRaw(t *testing.T) {
	a := NewArena()
	v, err := a.Tweak(map[string]any{"b": []any{1, "x", nil}, "a": map[string]any{"c": true}})
	if err != nil {
		t.Fatal(err)
	}
	n := v.(*Node)
	if n.Kind() != ObjectKind {
		t.Fatalf("kind %s", n.Kind())
	}
	if diff := cmp.Diff(`{"a":{"c":true},"b":[1,"x",null]}`, toJSON(t, n)); diff != "" {
		t.Error(diff)
	}
	if _, err := a.Tweak(struct{}{}); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("struct: %v", err)
	}
	other := NewArena()
	if _, err := a.Tweak(mustObject(t, other)); !errors.Is(err, ErrForeignArena) {
		t.Errorf("foreign: %v", err)
	}
}

func TestClone(t *testing.T) {
	a := NewArena(WithIDGenerator(counterIDs()))
	set := must(a.NewSet("x"))
	root := mustObject(t, a, KV{"s", set}, KV{"l", []any{map[string]any{"q": 1}}})
	c := a.Clone(root)
	if c == root || !c.IsRoot() {
		t.Fatal("clone is not a new root")
	}
	if !ir.Equal(GetSnapshot(c), GetSnapshot(root)) {
		t.Error("clone snapshot differs")
	}
	if Inspect(c.Get("s")) != SetKind {
		t.Error("clone lost set kind")
	}
	if c.Get("s").(*Node).Parent() != c {
		t.Error("clone child not parented")
	}
}
