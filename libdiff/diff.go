// Package libdiff computes the patches turning one snapshot into another.
package libdiff

import (
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

const (
	DefaultTypeKey = "$modelType"
	DefaultIDKey   = "$modelId"
)

type config struct {
	typeKey string
	idKey   string
}

type Option func(*config)

// WithModelKeys sets the keys identifying model snapshots. Array elements
// which are models with the same type and id are aligned with each other.
func WithModelKeys(typeKey, idKey string) Option {
	return func(c *config) {
		c.typeKey = typeKey
		c.idKey = idKey
	}
}

type differ struct {
	config
	patches []patch.Patch
}

// Diff returns patches which, applied to from in order, give a snapshot
// equal to to. Identical subtrees are skipped without being compared.
func Diff(from, to *ir.Node, opts ...Option) []patch.Patch {
	d := &differ{config: config{typeKey: DefaultTypeKey, idKey: DefaultIDKey}}
	for _, opt := range opts {
		opt(&d.config)
	}
	d.diff(nil, from, to)
	return d.patches
}

func (d *differ) diff(path ir.Path, from, to *ir.Node) {
	if from == to {
		return
	}
	if from.Type != to.Type || from.Type.IsLeaf() || d.identity(from) != d.identity(to) {
		if !ir.Equal(from, to) {
			d.replace(path, from, to)
		}
		return
	}
	switch from.Type {
	case ir.ObjectType:
		d.diffObject(path, from, to)
	case ir.ArrayType:
		d.diffArray(path, from, to)
	}
}

func (d *differ) diffObject(path ir.Path, from, to *ir.Node) {
	for i, f := range from.Fields {
		if to.FieldIndex(f) == -1 {
			d.patches = append(d.patches, patch.Patch{
				Op:       patch.Remove,
				Path:     path.Append(ir.Field(f)),
				OldValue: from.Values[i],
			})
		}
	}
	for i, f := range to.Fields {
		j := from.FieldIndex(f)
		if j == -1 {
			d.patches = append(d.patches, patch.Patch{
				Op:    patch.Add,
				Path:  path.Append(ir.Field(f)),
				Value: to.Values[i],
			})
			continue
		}
		d.diff(path.Append(ir.Field(f)), from.Values[j], to.Values[i])
	}
}

func (d *differ) replace(path ir.Path, from, to *ir.Node) {
	d.patches = append(d.patches, patch.Patch{
		Op:       patch.Replace,
		Path:     path,
		Value:    to,
		OldValue: from,
	})
}

// identity returns "type/id" for model snapshots and "" otherwise.
func (d *differ) identity(y *ir.Node) string {
	if y.Type != ir.ObjectType {
		return ""
	}
	t, id := ir.Get(y, d.typeKey), ir.Get(y, d.idKey)
	if t == nil || id == nil || t.Type != ir.StringType || id.Type != ir.StringType {
		return ""
	}
	return t.String + "/" + id.String
}
