// Package storetest holds the behavior every store.Store must have.
package storetest

import (
	"context"
	"testing"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/store"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, s string) *ir.Node {
	t.Helper()
	n, err := ir.FromJSON([]byte(s))
	require.NoError(t, err)
	return n
}

func requirePatches(t *testing.T, want, got []patch.Patch) {
	t.Helper()
	w, err := store.EncodePatches(want)
	require.NoError(t, err)
	g, err := store.EncodePatches(got)
	require.NoError(t, err)
	require.JSONEq(t, string(w), string(g))
}

// RunContract exercises s. s must not hold journals named "a" or "b".
func RunContract(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, _, err := s.LoadSnapshot(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
	es, err := s.Entries(ctx, "a", 0)
	require.NoError(t, err)
	require.Empty(t, es)

	p1 := []patch.Patch{{Op: patch.Add, Path: ir.PathOf("x"), Value: mustJSON(t, `{"y":[1]}`)}}
	p2 := []patch.Patch{
		{Op: patch.Replace, Path: ir.PathOf("x", "y", 0), Value: ir.FromInt(2), OldValue: ir.FromInt(1)},
		{Op: patch.Remove, Path: ir.PathOf("z"), OldValue: ir.FromString("gone")},
	}
	seq, err := s.Append(ctx, "a", p1)
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)
	seq, err = s.Append(ctx, "a", p2)
	require.NoError(t, err)
	require.Equal(t, int64(2), seq)

	es, err = s.Entries(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, es, 2)
	require.Equal(t, int64(1), es[0].Seq)
	require.Equal(t, int64(2), es[1].Seq)
	requirePatches(t, p1, es[0].Patches)
	requirePatches(t, p2, es[1].Patches)
	es, err = s.Entries(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, es, 1)
	require.Equal(t, int64(2), es[0].Seq)

	// identical patch lists are distinct entries
	seq, err = s.Append(ctx, "b", p1)
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)
	_, err = s.Append(ctx, "b", p1)
	require.NoError(t, err)
	es, err = s.Entries(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, es, 2)

	sn := mustJSON(t, `{"x":{"y":[2]},"k":"v"}`)
	require.NoError(t, s.SaveSnapshot(ctx, "a", 2, sn))
	got, gotSeq, err := s.LoadSnapshot(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(2), gotSeq)
	require.True(t, ir.Equal(sn, got))
	es, err = s.Entries(ctx, "a", 0)
	require.NoError(t, err)
	require.Empty(t, es)

	seq, err = s.Append(ctx, "a", p1)
	require.NoError(t, err)
	require.Equal(t, int64(3), seq)

	require.NoError(t, s.Delete(ctx, "a"))
	_, _, err = s.LoadSnapshot(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
	seq, err = s.Append(ctx, "a", p1)
	require.NoError(t, err)
	require.Equal(t, int64(1), seq)

	es, err = s.Entries(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, es, 2)
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "b"))
}
