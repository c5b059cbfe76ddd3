package main

import (
	"errors"
	"testing"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/tree"
	"github.com/signadot/treestate/typecheck"

	"github.com/stretchr/testify/require"
)

const todoModels = `
typeKey: kind
models:
- name: Todo
  idProp: id
  props:
  - name: title
    type: string
    default: untitled
  - name: prio
    type: integer
    check: value >= 0 && value <= 5
  - name: tags
    kind: set
`

func todoArena(t *testing.T) *tree.Arena {
	t.Helper()
	y, err := ir.FromYAML([]byte(todoModels))
	require.NoError(t, err)
	mf := &modelFile{}
	require.NoError(t, ir.Decode(y, mf))
	require.Equal(t, "kind", mf.TypeKey)
	require.Len(t, mf.Models, 1)
	reg, err := mf.registry()
	require.NoError(t, err)
	return tree.NewArena(tree.WithRegistry(reg), tree.WithTypeKey(mf.TypeKey), tree.WithCheckAssignments(true))
}

func TestModelFile(t *testing.T) {
	a := todoArena(t)
	mt := a.Registry().Lookup("Todo")
	require.NotNil(t, mt)
	require.Equal(t, "id", mt.IDProp)
	require.Equal(t, tree.SetKind, mt.Prop("tags").Kind)

	y, err := ir.FromJSON([]byte(`{"kind":"Todo","id":"t1","prio":2,"tags":["a","b"]}`))
	require.NoError(t, err)
	v, err := a.FromSnapshot(y)
	require.NoError(t, err)
	n := v.(*tree.Node)
	require.Equal(t, "t1", n.ModelID())
	require.Equal(t, "untitled", n.Get("title"))
	tags := n.Get("tags").(*tree.Node)
	require.Equal(t, tree.SetKind, tags.Kind())
	require.True(t, tags.Contains("a"))
}

func TestModelFileChecks(t *testing.T) {
	a := todoArena(t)
	for _, doc := range []string{
		`{"kind":"Todo","id":"t1","prio":9}`,
		`{"kind":"Todo","id":"t1","prio":1.5}`,
		`{"kind":"Todo","id":"t1","prio":1,"title":3}`,
	} {
		y, err := ir.FromJSON([]byte(doc))
		require.NoError(t, err)
		_, err = a.FromSnapshot(y)
		var te *typecheck.Error
		require.True(t, errors.As(err, &te), "%s: %v", doc, err)
	}
}

func TestModelFileErrors(t *testing.T) {
	for _, mf := range []*modelFile{
		{Models: []modelSpec{{Name: "A", Props: []propSpec{{Name: "x", Kind: "bag"}}}}},
		{Models: []modelSpec{{Name: "A", Props: []propSpec{{Name: "x", Type: "date"}}}}},
		{Models: []modelSpec{{Name: "A", Props: []propSpec{{Name: "x", Type: "number", Check: "value >"}}}}},
	} {
		_, err := mf.registry()
		require.Error(t, err)
	}
}
