package ir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
		ptr  string
	}{
		{nil, "", ""},
		{PathOf("a"), "a", "/a"},
		{PathOf(0), "[0]", "/0"},
		{PathOf("a", 0, "b"), "a[0].b", "/a/0/b"},
		{PathOf("a.b", "c"), "'a.b'.c", "/a.b/c"},
		{PathOf("it's", 2), `'it\'s'[2]`, "/it's/2"},
		{PathOf("", "x/y~"), "''.x/y~", "//x~1y~0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.path.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.path.Pointer(); got != tt.ptr {
				t.Errorf("Pointer() = %q, want %q", got, tt.ptr)
			}
			back, err := ParsePath(tt.want)
			if err != nil {
				t.Fatal(err)
			}
			if !back.Equal(tt.path) {
				t.Errorf("ParsePath(%q) = %v", tt.want, back.Keys())
			}
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, s := range []string{".a", "a..b", "a[", "a[x]", "a[-1]", "'open", "a.", `'x\`} {
		if _, err := ParsePath(s); !errors.Is(err, ErrBadPath) {
			t.Errorf("ParsePath(%q): expected ErrBadPath, got %v", s, err)
		}
	}
}

func TestPathJSON(t *testing.T) {
	p := PathOf("a", 1, "2")
	d, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(d) != `["a",1,"2"]` {
		t.Fatalf("got %s", d)
	}
	var q Path
	if err := json.Unmarshal(d, &q); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p.Keys(), q.Keys()); diff != "" {
		t.Error(diff)
	}
	if err := json.Unmarshal([]byte(`[1.5]`), &q); !errors.Is(err, ErrBadPath) {
		t.Errorf("expected ErrBadPath, got %v", err)
	}
}

func TestGetPath(t *testing.T) {
	doc, err := FromJSON([]byte(`{"a":[{"b":1},2]}`))
	if err != nil {
		t.Fatal(err)
	}
	n, err := GetPath(doc, PathOf("a", 0, "b"))
	if err != nil {
		t.Fatal(err)
	}
	if *n.Int64 != 1 {
		t.Errorf("got %v", n.NumberValue())
	}
	for _, p := range []Path{PathOf("x"), PathOf("a", 2), PathOf("a", "b"), PathOf(0)} {
		if _, err := GetPath(doc, p); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", p, err)
		}
	}
	if !PathOf("a", 0, "b").HasPrefix(PathOf("a", 0)) || PathOf("a").HasPrefix(PathOf("a", 0)) {
		t.Error("HasPrefix")
	}
}
