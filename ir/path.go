package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Key is one step of a Path: either an object field or an array index.
type Key struct {
	field   string
	index   int
	isIndex bool
}

func Field(f string) Key {
	return Key{field: f}
}

func Index(i int) Key {
	return Key{index: i, isIndex: true}
}

func (k Key) IsIndex() bool { return k.isIndex }
func (k Key) Field() string { return k.field }
func (k Key) Index() int    { return k.index }

// String returns the kinded path segment for k: "name", "'odd name'" or "[3]".
func (k Key) String() string {
	if k.isIndex {
		return "[" + strconv.Itoa(k.index) + "]"
	}
	if quoteField(k.field) {
		return quote(k.field)
	}
	return k.field
}

// Any returns the key as a string or an int.
func (k Key) Any() any {
	if k.isIndex {
		return k.index
	}
	return k.field
}

func (k Key) MarshalJSON() ([]byte, error) {
	if k.isIndex {
		return []byte(strconv.Itoa(k.index)), nil
	}
	return json.Marshal(k.field)
}

func (k *Key) UnmarshalJSON(d []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*k = Field(x)
	case json.Number:
		i, err := strconv.Atoi(string(x))
		if err != nil {
			return fmt.Errorf("%w: index %s", ErrBadPath, x)
		}
		*k = Index(i)
	default:
		return fmt.Errorf("%w: key %s", ErrBadPath, d)
	}
	return nil
}

// Path is a sequence of keys from some root to a descendant. The empty path
// denotes the root itself.
type Path []Key

// String renders the path in kinded path syntax, for example "a.b[0].c".
func (p Path) String() string {
	buf := bytes.NewBuffer(nil)
	for _, k := range p {
		if !k.isIndex && buf.Len() > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(k.String())
	}
	return buf.String()
}

// Pointer renders the path as an RFC 6901 JSON pointer.
func (p Path) Pointer() string {
	buf := bytes.NewBuffer(nil)
	for _, k := range p {
		buf.WriteByte('/')
		if k.isIndex {
			buf.WriteString(strconv.Itoa(k.index))
			continue
		}
		f := strings.ReplaceAll(k.field, "~", "~0")
		buf.WriteString(strings.ReplaceAll(f, "/", "~1"))
	}
	return buf.String()
}

// Append returns a new path; p is not modified.
func (p Path) Append(ks ...Key) Path {
	res := make(Path, 0, len(p)+len(ks))
	res = append(res, p...)
	return append(res, ks...)
}

// Prefix returns prefix followed by p.
func (p Path) Prefix(prefix Path) Path {
	return prefix.Append(p...)
}

func (p Path) Equal(q Path) bool {
	return slices.Equal(p, q)
}

func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && slices.Equal(p[:len(q)], q)
}

// Keys returns the path as a list of strings and ints.
func (p Path) Keys() []any {
	res := make([]any, len(p))
	for i, k := range p {
		res[i] = k.Any()
	}
	return res
}

func PathOf(keys ...any) Path {
	res := make(Path, len(keys))
	for i, k := range keys {
		switch x := k.(type) {
		case int:
			res[i] = Index(x)
		case string:
			res[i] = Field(x)
		case Key:
			res[i] = x
		default:
			panic(fmt.Sprintf("path key %T", k))
		}
	}
	return res
}

// ParsePath parses kinded path syntax as produced by Path.String.
func ParsePath(s string) (Path, error) {
	var res Path
	for len(s) > 0 {
		switch s[0] {
		case '.':
			if len(res) == 0 {
				return nil, fmt.Errorf("%w: leading '.'", ErrBadPath)
			}
			s = s[1:]
			if len(s) == 0 || s[0] == '.' || s[0] == '[' {
				return nil, fmt.Errorf("%w: empty field", ErrBadPath)
			}
		case '[':
			j := strings.IndexByte(s, ']')
			if j == -1 {
				return nil, fmt.Errorf("%w: expected ']'", ErrBadPath)
			}
			i, err := strconv.Atoi(s[1:j])
			if err != nil || i < 0 {
				return nil, fmt.Errorf("%w: index %q", ErrBadPath, s[1:j])
			}
			res = append(res, Index(i))
			s = s[j+1:]
			continue
		}
		f, rest, err := parseField(s)
		if err != nil {
			return nil, err
		}
		res = append(res, Field(f))
		s = rest
	}
	return res, nil
}

func parseField(s string) (string, string, error) {
	if s[0] != '\'' {
		j := strings.IndexAny(s, ".[")
		if j == -1 {
			return s, "", nil
		}
		return s[:j], s[j:], nil
	}
	buf := bytes.NewBuffer(nil)
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 == len(s) {
				return "", "", fmt.Errorf("%w: trailing escape", ErrBadPath)
			}
			i++
			buf.WriteByte(s[i])
		case '\'':
			return buf.String(), s[i+1:], nil
		default:
			buf.WriteByte(s[i])
		}
	}
	return "", "", fmt.Errorf("%w: unterminated quote", ErrBadPath)
}

func quoteField(f string) bool {
	return f == "" || strings.ContainsAny(f, ".[]'\\ \t\n")
}

func quote(f string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(f) + "'"
}

// GetPath returns the descendant of y at p.
func GetPath(y *Node, p Path) (*Node, error) {
	res := y
	for i, k := range p {
		switch {
		case k.isIndex:
			if res.Type != ArrayType {
				return nil, fmt.Errorf("%w: expected array at %s, got %s", ErrNotFound, p[:i], res.Type)
			}
			if k.index < 0 || k.index >= len(res.Values) {
				return nil, fmt.Errorf("%w: index out of bounds %d (len %d)", ErrNotFound, k.index, len(res.Values))
			}
			res = res.Values[k.index]
		default:
			if res.Type != ObjectType {
				return nil, fmt.Errorf("%w: expected object at %s, got %s", ErrNotFound, p[:i], res.Type)
			}
			v := Get(res, k.field)
			if v == nil {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, p[:i+1])
			}
			res = v
		}
	}
	return res, nil
}
