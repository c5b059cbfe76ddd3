package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONKeepsOrder(t *testing.T) {
	src := `{"z":1,"a":[true,null,"s",1.5,-3],"m":{}}`
	n, err := FromJSON([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"z", "a", "m"}, n.Fields); diff != "" {
		t.Error(diff)
	}
	d, err := ToJSON(n)
	if err != nil {
		t.Fatal(err)
	}
	if string(d) != src {
		t.Errorf("got %s", d)
	}
}

func TestJSONNumbers(t *testing.T) {
	n, err := FromJSON([]byte(`[1, 2.5, 1e400, 9223372036854775808]`))
	if err != nil {
		t.Fatal(err)
	}
	if n.Values[0].Int64 == nil || n.Values[1].Float64 == nil {
		t.Fatal("expected int and float")
	}
	if big := n.Values[2]; big.Int64 != nil || big.Float64 != nil || big.Number != "1e400" {
		t.Errorf("expected literal fallback, got %+v", big)
	}
	if n.Values[3].Float64 == nil {
		t.Error("expected float for out of range int")
	}
}

func TestJSONErrors(t *testing.T) {
	for _, s := range []string{`{`, `[1,]`, `1 2`, ``} {
		if _, err := FromJSON([]byte(s)); !errors.Is(err, ErrParse) {
			t.Errorf("FromJSON(%q): expected ErrParse, got %v", s, err)
		}
	}
}

func TestYAML(t *testing.T) {
	n, err := FromYAML([]byte("b: 1\na:\n  - x\n  - {c: true}\n"))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := FromJSON([]byte(`{"b":1,"a":["x",{"c":true}]}`))
	if !Equal(want, n) {
		d, _ := ToJSON(n)
		t.Fatalf("got %s", d)
	}
	if diff := cmp.Diff([]string{"b", "a"}, n.Fields); diff != "" {
		t.Error(diff)
	}
	d, err := ToYAML(n)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromYAML(d)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(n, back) {
		t.Errorf("yaml round trip:\n%s", d)
	}
}

func TestFromAny(t *testing.T) {
	n, err := FromAny(map[string]any{"b": []any{uint8(1), float32(0.5)}, "a": nil})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, n.Fields); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(map[string]any{"a": nil, "b": []any{int64(1), 0.5}}, ToAny(n)); diff != "" {
		t.Error(diff)
	}
	if _, err := FromAny(struct{}{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	type item struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	n, err := FromJSON([]byte(`{"name":"x","count":"3","tags":["a"],"extra":1}`))
	if err != nil {
		t.Fatal(err)
	}
	var got item
	if err := Decode(n, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(item{Name: "x", Count: 3, Tags: []string{"a"}}, got); diff != "" {
		t.Error(diff)
	}
}

func TestShallowCopyShares(t *testing.T) {
	child := FromString("c")
	n := FromSlice([]*Node{child})
	cp := n.ShallowCopy()
	cp.Values[0] = FromString("d")
	if n.Values[0] != child {
		t.Error("original modified")
	}
	deep := n.Clone()
	if deep.Values[0] == child || !Equal(deep, n) {
		t.Error("clone")
	}
}
