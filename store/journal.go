package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/signadot/treestate/debug"
	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
	"github.com/signadot/treestate/reconcile"
	"github.com/signadot/treestate/tree"
)

// Journal appends the patch events of a live root to a Store.
//
// Patch listeners cannot fail, so an append error is kept and returned by
// Err, Checkpoint and Close. Entries after a failed append are not written.
type Journal struct {
	ctx     context.Context
	store   Store
	name    string
	root    *tree.Node
	dispose func()
	seq     int64
	err     error
}

// Attach starts journaling the patches of root under name. When the store
// holds nothing for name the current snapshot of root is saved first, so
// that the journal can be replayed on its own.
func Attach(ctx context.Context, s Store, name string, root *tree.Node) (*Journal, error) {
	j := &Journal{ctx: ctx, store: s, name: name, root: root}
	_, seq, err := s.LoadSnapshot(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.SaveSnapshot(ctx, name, 0, tree.GetSnapshot(root)); err != nil {
			return nil, fmt.Errorf("initial snapshot of %s: %w", name, err)
		}
	case err != nil:
		return nil, err
	default:
		j.seq = seq
		es, err := s.Entries(ctx, name, seq)
		if err != nil {
			return nil, err
		}
		if len(es) != 0 {
			j.seq = es[len(es)-1].Seq
		}
	}
	j.dispose = root.OnPatches(j.record)
	return j, nil
}

func (j *Journal) record(ev tree.PatchEvent) {
	if j.err != nil {
		return
	}
	seq, err := j.store.Append(j.ctx, j.name, ev.Patches)
	if err != nil {
		j.err = fmt.Errorf("append to %s: %w", j.name, err)
		return
	}
	j.seq = seq
	if debug.Patch() {
		debug.Logf("journal %s: entry %d (%d patches)", j.name, seq, len(ev.Patches))
	}
}

// Seq returns the sequence number of the last entry written.
func (j *Journal) Seq() int64 {
	return j.seq
}

func (j *Journal) Err() error {
	return j.err
}

// Checkpoint saves the current snapshot of the root, which compacts the
// entries written so far.
func (j *Journal) Checkpoint(ctx context.Context) error {
	if j.dispose == nil {
		return ErrClosed
	}
	if j.err != nil {
		return j.err
	}
	return j.store.SaveSnapshot(ctx, j.name, j.seq, tree.GetSnapshot(j.root))
}

// Close stops journaling. It does not close the store.
func (j *Journal) Close() error {
	if j.dispose != nil {
		j.dispose()
		j.dispose = nil
	}
	return j.err
}

// Replay returns the snapshot of name after its last entry, and that
// entry's sequence number.
func Replay(ctx context.Context, s Store, name string) (*ir.Node, int64, error) {
	sn, seq, err := s.LoadSnapshot(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	es, err := s.Entries(ctx, name, seq)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range es {
		sn, err = patch.Apply(sn, e.Patches...)
		if err != nil {
			return nil, 0, fmt.Errorf("%s entry %d: %w", name, e.Seq, err)
		}
		seq = e.Seq
	}
	return sn, seq, nil
}

// Restore builds a live tree in a from the stored state of name.
func Restore(ctx context.Context, s Store, a *tree.Arena, name string) (any, error) {
	sn, _, err := Replay(ctx, s, name)
	if err != nil {
		return nil, err
	}
	return a.FromSnapshot(sn)
}

// RestoreInto reconciles root with the stored state of name, keeping the
// identity of its nodes where the stored state allows.
func RestoreInto(ctx context.Context, s Store, e *reconcile.Engine, root *tree.Node, name string) error {
	sn, _, err := Replay(ctx, s, name)
	if err != nil {
		return err
	}
	return e.ApplySnapshot(root, sn)
}
